package options

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// ModelConfig is the per-model configuration of one integration.
//
// Resolve fills every unset attribute from the context and must leave
// explicitly set attributes untouched. Clone returns a deep copy used for
// read-only views handed to callers.
type ModelConfig interface {
	Integration() string
	Resolve(*ModelContext) error
	Clone() ModelConfig
}

// FieldConfig is the per-field configuration of one integration.
type FieldConfig interface {
	Integration() string
	Resolve(*FieldContext) error
	Clone() FieldConfig
}

// ModelContext is passed to ModelConfig.Resolve.
type ModelContext struct {
	Type  reflect.Type // record type.
	Model *Model       // root model, already resolved.
}

// FieldContext is passed to FieldConfig.Resolve.
type FieldContext struct {
	Type  reflect.Type // record type.
	Model *Model       // root model, already resolved.
	Field *ModelField  // root field; its own attributes are already resolved.
}

// Integration describes a registered integration. The registry stores
// factories, so every model and field gets its own configuration instance.
type Integration struct {
	Name     string
	NewModel func() ModelConfig
	NewField func() FieldConfig
}

var integrations struct {
	mu   sync.RWMutex
	list []Integration
}

// Register makes an integration available to every subsequent resolution.
// It is meant to be called from the init function of the integration
// package. Register panics if the name is empty, a factory is nil, or the
// name is already registered.
func Register(i Integration) {
	if i.Name == "" {
		panic("options: Register integration with empty name")
	}
	if i.NewModel == nil || i.NewField == nil {
		panic(fmt.Sprintf("options: Register integration %q with nil factory", i.Name))
	}
	integrations.mu.Lock()
	defer integrations.mu.Unlock()
	for _, r := range integrations.list {
		if r.Name == i.Name {
			panic(fmt.Sprintf("options: Register called twice for integration %q", i.Name))
		}
	}
	integrations.list = append(integrations.list, i)
}

// Integrations returns the registered integrations in registration order.
func Integrations() []Integration {
	integrations.mu.RLock()
	defer integrations.mu.RUnlock()
	return slices.Clone(integrations.list)
}

// IntegrationNames returns the names of the registered integrations.
func IntegrationNames() []string {
	integrations.mu.RLock()
	defer integrations.mu.RUnlock()
	names := make([]string, len(integrations.list))
	for i, r := range integrations.list {
		names[i] = r.Name
	}
	return names
}

// Lookup returns the registered integration with the given name.
func Lookup(name string) (Integration, bool) {
	integrations.mu.RLock()
	defer integrations.mu.RUnlock()
	for _, r := range integrations.list {
		if r.Name == name {
			return r, true
		}
	}
	return Integration{}, false
}
