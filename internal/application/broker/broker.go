// Package broker holds the named business handlers that ticket templates
// attach to status transitions.
package broker

import (
	"context"
	"fmt"
	"sort"

	"github.com/aflo-dev/aflo/internal/application/validator"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Invocation is what a hook sees of the transition it runs in. Hooks may
// mutate Ticket.ActionDetail; the engine persists it.
type Invocation struct {
	Operation      string
	Ticket         *entity.Ticket
	Template       *entity.TicketTemplate
	Caller         entity.Caller
	FromStatus     string
	ToStatus       string
	AdditionalData entity.Document
}

// Detail returns the ticket detail overlaid with the transition's additional data.
func (inv *Invocation) Detail() entity.Document {
	return inv.Ticket.TicketDetail.Merge(inv.AdditionalData)
}

// SetResult records a value under key in the ticket's action detail.
func (inv *Invocation) SetResult(key string, value interface{}) {
	if inv.Ticket.ActionDetail == nil {
		inv.Ticket.ActionDetail = entity.Document{}
	}
	inv.Ticket.ActionDetail[key] = value
}

// Method is one named business operation of a broker.
type Method func(ctx context.Context, inv *Invocation) error

// Broker is a named set of hook methods.
type Broker interface {
	Name() string
	// GeneralParamCheck validates detail against the schema of the current action.
	GeneralParamCheck(schema []entity.ParamDescriptor, detail entity.Document) error
	Method(name string) (Method, bool)
	Methods() []string
}

// BaseBroker implements the registry-facing half of Broker. Concrete
// brokers embed it and register their methods in their constructor.
type BaseBroker struct {
	name    string
	methods map[string]Method
}

// NewBaseBroker creates an empty broker named name.
func NewBaseBroker(name string) BaseBroker {
	return BaseBroker{name: name, methods: make(map[string]Method)}
}

// Name returns the broker class used in template actions.
func (b *BaseBroker) Name() string { return b.name }

// Handle registers method under name.
func (b *BaseBroker) Handle(name string, m Method) {
	b.methods[name] = m
}

// Method looks up a registered method.
func (b *BaseBroker) Method(name string) (Method, bool) {
	m, ok := b.methods[name]
	return m, ok
}

// Methods returns the registered method names, sorted.
func (b *BaseBroker) Methods() []string {
	names := make([]string, 0, len(b.methods))
	for name := range b.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GeneralParamCheck runs the shared parameter validator.
func (b *BaseBroker) GeneralParamCheck(schema []entity.ParamDescriptor, detail entity.Document) error {
	if err := validator.Validate(schema, detail); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}
