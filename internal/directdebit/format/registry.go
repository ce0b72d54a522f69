package format

import "strings"

// AdapterConfig is the per-deployment configuration handed to factories.
type AdapterConfig struct {
	Channel string
}

// Factory builds a configured Adapter. One factory is registered per bank
// file grammar; the active one is chosen by name at process start.
type Factory interface {
	Name() string
	New(cfg AdapterConfig) (Adapter, error)
}

// Registry holds the known adapter factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry indexes the given factories by name.
func NewRegistry(factories ...Factory) *Registry {
	reg := &Registry{factories: make(map[string]Factory, len(factories))}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		name := normalizeName(factory.Name())
		if name == "" {
			continue
		}
		reg.factories[name] = factory
	}
	return reg
}

// Exists reports whether an adapter name is registered.
func (r *Registry) Exists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// New constructs the named adapter.
func (r *Registry) New(name string, cfg AdapterConfig) (Adapter, error) {
	if r == nil {
		return nil, ErrUnknownAdapter
	}
	factory, ok := r.factories[normalizeName(name)]
	if !ok {
		return nil, ErrUnknownAdapter
	}
	return factory.New(cfg)
}

// Names lists the registered adapter names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
