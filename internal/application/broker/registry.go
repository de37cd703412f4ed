package broker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Hook is a template hook descriptor resolved to a concrete method.
type Hook struct {
	entity.HookDescriptor
	Broker Broker
	Method Method
}

// Registry maps broker class names to implementations. It is filled at
// startup and read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	brokers map[string]Broker
}

// NewRegistry creates a registry holding brokers.
func NewRegistry(brokers ...Broker) (*Registry, error) {
	r := &Registry{brokers: make(map[string]Broker)}
	for _, b := range brokers {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds b under its name. Names must be unique.
func (r *Registry) Register(b Broker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.brokers[b.Name()]; exists {
		return fmt.Errorf("broker %q already registered", b.Name())
	}
	r.brokers[b.Name()] = b
	return nil
}

// Get returns the broker registered under name.
func (r *Registry) Get(name string) (Broker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.brokers[name]
	return b, ok
}

// Names returns the registered broker classes, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.brokers))
	for name := range r.brokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns descriptors into hooks, keeping their order.
func (r *Registry) Resolve(descriptors []entity.HookDescriptor) ([]Hook, error) {
	hooks := make([]Hook, 0, len(descriptors))
	for _, d := range descriptors {
		b, ok := r.Get(d.BrokerClass)
		if !ok {
			return nil, apperr.InvalidParameterValue("unknown broker class %q", d.BrokerClass)
		}
		m, ok := b.Method(d.BrokerMethod)
		if !ok {
			return nil, apperr.InvalidParameterValue("broker %q has no method %q", d.BrokerClass, d.BrokerMethod)
		}
		hooks = append(hooks, Hook{HookDescriptor: d, Broker: b, Method: m})
	}
	return hooks, nil
}

// Plan resolves the hooks a template runs at timing when entering status.
func (r *Registry) Plan(tmpl *entity.TicketTemplate, timing, status string) ([]Hook, error) {
	return r.Resolve(tmpl.Contents.Action.Hooks(timing, status))
}

// CheckActions verifies that every hook of an action map resolves.
func (r *Registry) CheckActions(actions entity.ActionMap) error {
	for timing, byStatus := range actions {
		if timing != entity.TimingBefore && timing != entity.TimingAfter {
			return apperr.InvalidParameterValue("unknown hook timing %q", timing)
		}
		for _, descriptors := range byStatus {
			if _, err := r.Resolve(descriptors); err != nil {
				return err
			}
		}
	}
	return nil
}
