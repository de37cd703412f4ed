package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// memRepo is an in-memory port.ResourceRepository
type memRepo[T any, PT interface {
	*T
	GetRecord() *entity.Record
}] struct {
	items     map[string]*T
	updateErr error
}

func newMemRepo[T any, PT interface {
	*T
	GetRecord() *entity.Record
}](records ...*T) *memRepo[T, PT] {
	m := &memRepo[T, PT]{items: make(map[string]*T)}
	for _, r := range records {
		m.items[PT(r).GetRecord().ID] = r
	}
	return m
}

func (m *memRepo[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	v, ok := m.items[id]
	if !ok || PT(v).GetRecord().Deleted {
		return nil, apperr.NotFound("record %s not found", id)
	}
	return v, nil
}

func (m *memRepo[T, PT]) List(ctx context.Context, filter port.ResourceFilter) ([]*T, int64, error) {
	out := make([]*T, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo[T, PT]) Create(ctx context.Context, record *T) error {
	m.items[PT(record).GetRecord().ID] = record
	return nil
}

func (m *memRepo[T, PT]) Update(ctx context.Context, record *T) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.items[PT(record).GetRecord().ID] = record
	return nil
}

func (m *memRepo[T, PT]) SoftDelete(ctx context.Context, id string) error {
	v, ok := m.items[id]
	if !ok {
		return apperr.NotFound("record %s not found", id)
	}
	PT(v).GetRecord().Deleted = true
	return nil
}

type sentMail struct {
	to       string
	template string
	data     entity.Document
}

type mockMailer struct {
	sent []sentMail
}

func (m *mockMailer) Sendmail(ctx context.Context, to, template string, data entity.Document) {
	m.sent = append(m.sent, sentMail{to: to, template: template, data: data})
}

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newContractBroker(t *testing.T, contracts ...*entity.Contract) (*ContractBroker, *memRepo[entity.Contract, *entity.Contract]) {
	t.Helper()
	goods := newMemRepo[entity.Goods, *entity.Goods](&entity.Goods{Record: entity.Record{ID: "g-1"}, GoodsName: "VM"})
	catalogs := newMemRepo[entity.Catalog, *entity.Catalog](&entity.Catalog{Record: entity.Record{ID: "c-1"}, CatalogName: "Compute", Region: "jp-east"})
	contractRepo := newMemRepo[entity.Contract, *entity.Contract](contracts...)

	b := NewContractBroker(goods, catalogs, contractRepo, zap.NewNop())
	b.now = func() time.Time { return fixedNow }
	return b, contractRepo
}

func invocation(detail entity.Document) *Invocation {
	return &Invocation{
		Operation: entity.OperationUpdate,
		Ticket: &entity.Ticket{
			ID:               "t-1",
			TicketTemplateID: "tmpl-1",
			TicketType:       "contract_registration",
			TenantID:         "tenant-1",
			TenantName:       "Tenant One",
			OwnerID:          "u-1",
			OwnerName:        "Owner",
			TicketDetail:     detail,
		},
		Caller:     entity.Caller{UserID: "u-2", UserName: "Director"},
		FromStatus: "applied",
		ToStatus:   "approved",
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	b, _ := newContractBroker(t)
	_, err := NewRegistry(b, b)
	assert.Error(t, err)
}

func TestRegistryResolveKeepsOrder(t *testing.T) {
	cb, _ := newContractBroker(t)
	nb := NewNotificationBroker(&mockMailer{}, zap.NewNop())
	r, err := NewRegistry(cb, nb)
	require.NoError(t, err)

	hooks, err := r.Resolve([]entity.HookDescriptor{
		{BrokerClass: NotificationBrokerName, BrokerMethod: MethodSendMail},
		{BrokerClass: ContractBrokerName, BrokerMethod: MethodCheckGoods, Validation: true},
	})
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, NotificationBrokerName, hooks[0].Broker.Name())
	assert.True(t, hooks[1].Validation)
	assert.Equal(t, []string{ContractBrokerName, NotificationBrokerName}, r.Names())
	assert.Equal(t, []string{MethodCancelContract, MethodCheckContract, MethodCheckGoods, MethodRegisterContract}, cb.Methods())
}

func TestRegistryResolveUnknown(t *testing.T) {
	cb, _ := newContractBroker(t)
	r, err := NewRegistry(cb)
	require.NoError(t, err)

	_, err = r.Resolve([]entity.HookDescriptor{{BrokerClass: "billing", BrokerMethod: "charge"}})
	assert.Equal(t, apperr.KindInvalidParameterValue, apperr.KindOf(err))

	_, err = r.Resolve([]entity.HookDescriptor{{BrokerClass: ContractBrokerName, BrokerMethod: "charge"}})
	assert.Equal(t, apperr.KindInvalidParameterValue, apperr.KindOf(err))
}

func TestRegistryCheckActions(t *testing.T) {
	cb, _ := newContractBroker(t)
	r, err := NewRegistry(cb)
	require.NoError(t, err)

	assert.NoError(t, r.CheckActions(entity.ActionMap{
		entity.TimingBefore: {"applied": {{BrokerClass: ContractBrokerName, BrokerMethod: MethodCheckGoods}}},
	}))
	assert.Error(t, r.CheckActions(entity.ActionMap{
		"during": {"applied": {{BrokerClass: ContractBrokerName, BrokerMethod: MethodCheckGoods}}},
	}))
	assert.Error(t, r.CheckActions(entity.ActionMap{
		entity.TimingAfter: {"done": {{BrokerClass: "missing", BrokerMethod: "x"}}},
	}))
}

func TestPlanUsesEnteredStatus(t *testing.T) {
	cb, _ := newContractBroker(t)
	r, err := NewRegistry(cb)
	require.NoError(t, err)

	tmpl := &entity.TicketTemplate{Contents: entity.TemplateContents{Action: entity.ActionMap{
		entity.TimingAfter: {"approved": {{BrokerClass: ContractBrokerName, BrokerMethod: MethodRegisterContract}}},
	}}}

	hooks, err := r.Plan(tmpl, entity.TimingAfter, "approved")
	require.NoError(t, err)
	assert.Len(t, hooks, 1)

	hooks, err = r.Plan(tmpl, entity.TimingAfter, "applied")
	require.NoError(t, err)
	assert.Empty(t, hooks)
}

func TestGeneralParamCheck(t *testing.T) {
	cb, _ := newContractBroker(t)
	schema := []entity.ParamDescriptor{{Name: "goods_id", Type: "string", Required: true}}

	assert.NoError(t, cb.GeneralParamCheck(schema, entity.Document{"goods_id": "g-1"}))

	err := cb.GeneralParamCheck(schema, entity.Document{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidParameterValue))
}

func TestCheckGoods(t *testing.T) {
	cb, _ := newContractBroker(t)
	m, _ := cb.Method(MethodCheckGoods)

	assert.NoError(t, m(context.Background(), invocation(entity.Document{"goods_id": "g-1"})))

	err := m(context.Background(), invocation(entity.Document{"goods_id": "g-404"}))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = m(context.Background(), invocation(entity.Document{}))
	assert.Equal(t, apperr.KindInvalidParameterValue, apperr.KindOf(err))
}

func TestCheckContract(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	cb, _ := newContractBroker(t,
		&entity.Contract{Record: entity.Record{ID: "k-live"}},
		&entity.Contract{Record: entity.Record{ID: "k-expired"}, ExpirationDate: &past},
	)
	m, _ := cb.Method(MethodCheckContract)

	inv := invocation(entity.Document{})
	inv.Ticket.TargetID = "k-live"
	assert.NoError(t, m(context.Background(), inv))

	inv.Ticket.TargetID = "k-expired"
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(m(context.Background(), inv)))

	inv.Ticket.TargetID = ""
	assert.Equal(t, apperr.KindInvalidParameterValue, apperr.KindOf(m(context.Background(), inv)))
}

func TestRegisterContractRecordsResult(t *testing.T) {
	cb, contracts := newContractBroker(t)
	m, _ := cb.Method(MethodRegisterContract)

	inv := invocation(entity.Document{"goods_id": "g-1", "catalog_id": "c-1", "num_of_goods": 2.0})
	require.NoError(t, m(context.Background(), inv))

	id := inv.Ticket.ActionDetail.GetString("contract_id")
	require.NotEmpty(t, id)
	contract := contracts.items[id]
	require.NotNil(t, contract)
	assert.Equal(t, "tenant-1", contract.ProjectID)
	assert.Equal(t, "Compute", contract.CatalogName)
	assert.Equal(t, "jp-east", contract.Region)
	assert.Equal(t, 2, contract.NumOfGoods)
	assert.Equal(t, "t-1", contract.ApplicationID)
	assert.Equal(t, fixedNow, contract.LifetimeStart)
}

func TestCancelContractSetsExpiration(t *testing.T) {
	cb, contracts := newContractBroker(t, &entity.Contract{Record: entity.Record{ID: "k-1"}})
	m, _ := cb.Method(MethodCancelContract)

	inv := invocation(entity.Document{})
	inv.Ticket.TargetID = "k-1"
	require.NoError(t, m(context.Background(), inv))

	require.NotNil(t, contracts.items["k-1"].ExpirationDate)
	assert.Equal(t, fixedNow, *contracts.items["k-1"].ExpirationDate)
	assert.Equal(t, "k-1", inv.Ticket.ActionDetail.GetString("canceled_contract_id"))
}

func TestCancelContractUsesDateParameter(t *testing.T) {
	cb, contracts := newContractBroker(t, &entity.Contract{Record: entity.Record{ID: "k-1"}})
	m, _ := cb.Method(MethodCancelContract)

	inv := invocation(entity.Document{"expiration_date": "2026-01-01T00:00:00.000000"})
	inv.Ticket.TargetID = "k-1"
	require.NoError(t, m(context.Background(), inv))

	require.NotNil(t, contracts.items["k-1"].ExpirationDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *contracts.items["k-1"].ExpirationDate)

	inv = invocation(entity.Document{"expiration_date": "2026-01-01T00:00:00Z"})
	inv.Ticket.TargetID = "k-1"
	assert.Equal(t, apperr.KindInvalidParameterValue, apperr.KindOf(m(context.Background(), inv)))
}

func TestCancelContractPropagatesStoreFailure(t *testing.T) {
	cb, contracts := newContractBroker(t, &entity.Contract{Record: entity.Record{ID: "k-1"}})
	contracts.updateErr = errors.New("disk full")
	m, _ := cb.Method(MethodCancelContract)

	inv := invocation(entity.Document{})
	inv.Ticket.TargetID = "k-1"
	assert.Error(t, m(context.Background(), inv))
}

func TestSendMail(t *testing.T) {
	mailer := &mockMailer{}
	nb := NewNotificationBroker(mailer, zap.NewNop())
	m, ok := nb.Method(MethodSendMail)
	require.True(t, ok)

	require.NoError(t, m(context.Background(), invocation(entity.Document{})))
	assert.Empty(t, mailer.sent)

	require.NoError(t, m(context.Background(), invocation(entity.Document{"notify_to": "owner@example.com"})))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@example.com", mailer.sent[0].to)
	assert.Equal(t, MailTemplateStatusChanged, mailer.sent[0].template)
	assert.Equal(t, "approved", mailer.sent[0].data.GetString("to_status"))
}
