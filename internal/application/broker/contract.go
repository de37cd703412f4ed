package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/validator"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Contract broker method names
const (
	ContractBrokerName     = "contract"
	MethodCheckGoods       = "check_goods"
	MethodCheckContract    = "check_contract"
	MethodRegisterContract = "register_contract"
	MethodCancelContract   = "cancel_contract"
)

// Detail keys read by the contract broker
const (
	detailGoodsID        = "goods_id"
	detailCatalogID      = "catalog_id"
	detailNumOfGoods     = "num_of_goods"
	detailRegion         = "region"
	detailExpirationDate = "expiration_date"

	resultContractID         = "contract_id"
	resultCanceledContractID = "canceled_contract_id"
)

// ContractBroker registers and cancels contracts for contract tickets.
type ContractBroker struct {
	BaseBroker
	goods     port.ResourceRepository[entity.Goods]
	catalogs  port.ResourceRepository[entity.Catalog]
	contracts port.ResourceRepository[entity.Contract]
	logger    *zap.Logger
	now       func() time.Time
}

// NewContractBroker creates the contract broker.
func NewContractBroker(
	goods port.ResourceRepository[entity.Goods],
	catalogs port.ResourceRepository[entity.Catalog],
	contracts port.ResourceRepository[entity.Contract],
	logger *zap.Logger,
) *ContractBroker {
	b := &ContractBroker{
		BaseBroker: NewBaseBroker(ContractBrokerName),
		goods:      goods,
		catalogs:   catalogs,
		contracts:  contracts,
		logger:     logger,
		now:        time.Now,
	}
	b.Handle(MethodCheckGoods, b.checkGoods)
	b.Handle(MethodCheckContract, b.checkContract)
	b.Handle(MethodRegisterContract, b.registerContract)
	b.Handle(MethodCancelContract, b.cancelContract)
	return b
}

func (b *ContractBroker) checkGoods(ctx context.Context, inv *Invocation) error {
	goodsID := inv.Detail().GetString(detailGoodsID)
	if goodsID == "" {
		return apperr.InvalidParameterValue("%s is required", detailGoodsID)
	}
	if _, err := b.goods.Get(ctx, goodsID); err != nil {
		return fmt.Errorf("check goods %s: %w", goodsID, err)
	}
	return nil
}

func (b *ContractBroker) checkContract(ctx context.Context, inv *Invocation) error {
	contract, err := b.targetContract(ctx, inv)
	if err != nil {
		return err
	}
	if !contract.IsActive(b.now()) {
		return apperr.Conflict("contract %s is no longer active", contract.ID)
	}
	return nil
}

func (b *ContractBroker) registerContract(ctx context.Context, inv *Invocation) error {
	detail := inv.Detail()
	t := inv.Ticket
	now := b.now()

	contract := &entity.Contract{
		Record:           entity.Record{ID: uuid.NewString()},
		ProjectID:        t.TenantID,
		ProjectName:      t.TenantName,
		Region:           detail.GetString(detailRegion),
		CatalogID:        detail.GetString(detailCatalogID),
		GoodsID:          detail.GetString(detailGoodsID),
		NumOfGoods:       int(detail.GetInt(detailNumOfGoods)),
		TicketTemplateID: t.TicketTemplateID,
		ApplicationID:    t.ID,
		ApplicationKind:  t.TicketType,
		ApplicantID:      t.OwnerID,
		ApplicantName:    t.OwnerName,
		ApplicationDate:  t.OwnerAt,
		LifetimeStart:    now,
	}
	if contract.NumOfGoods <= 0 {
		contract.NumOfGoods = 1
	}
	if contract.CatalogID != "" {
		catalog, err := b.catalogs.Get(ctx, contract.CatalogID)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", contract.CatalogID, err)
		}
		contract.CatalogName = catalog.CatalogName
		if contract.Region == "" {
			contract.Region = catalog.Region
		}
	}

	if err := b.contracts.Create(ctx, contract); err != nil {
		return fmt.Errorf("register contract: %w", err)
	}
	inv.SetResult(resultContractID, contract.ID)

	b.logger.Info("Contract registered",
		zap.String("contract_id", contract.ID),
		zap.String("ticket_id", t.ID))
	return nil
}

func (b *ContractBroker) cancelContract(ctx context.Context, inv *Invocation) error {
	contract, err := b.targetContract(ctx, inv)
	if err != nil {
		return err
	}

	expiration := b.now()
	if raw := inv.Detail().GetString(detailExpirationDate); raw != "" {
		parsed, err := validator.ParseDate(raw)
		if err != nil {
			return apperr.InvalidParameterValue("%s: %v", detailExpirationDate, err)
		}
		expiration = parsed
	}
	contract.ExpirationDate = &expiration

	if err := b.contracts.Update(ctx, contract); err != nil {
		return fmt.Errorf("cancel contract %s: %w", contract.ID, err)
	}
	inv.SetResult(resultCanceledContractID, contract.ID)

	b.logger.Info("Contract canceled",
		zap.String("contract_id", contract.ID),
		zap.Time("expiration_date", expiration))
	return nil
}

func (b *ContractBroker) targetContract(ctx context.Context, inv *Invocation) (*entity.Contract, error) {
	if inv.Ticket.TargetID == "" {
		return nil, apperr.InvalidParameterValue("target_id is required")
	}
	contract, err := b.contracts.Get(ctx, inv.Ticket.TargetID)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", inv.Ticket.TargetID, err)
	}
	return contract, nil
}
