package secret

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Settings carries the provider options taken from the secrets section of
// the configuration. Providers ignore fields that do not concern them.
type Settings struct {
	// FileDir anchors relative references of the file provider.
	FileDir string
}

// ProviderFactory builds a Provider from Settings.
type ProviderFactory func(Settings) (Provider, error)

// Registry maps provider names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ProviderFactory{}}
}

// Register adds factory under name. Names are unique within a registry.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("secret: provider name is required")
	}
	if factory == nil {
		return fmt.Errorf("secret: provider %q has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered under name.
func (r *Registry) Create(name string, settings Settings) (Provider, error) {
	r.mu.RLock()
	factory := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return factory(settings)
}

// Open creates every named provider with the same settings. If one fails,
// the providers already created are closed.
func (r *Registry) Open(settings Settings, names ...string) ([]Provider, error) {
	opened := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, settings)
		if err != nil {
			for _, o := range opened {
				err = errors.Join(err, o.Close())
			}
			return nil, err
		}
		opened = append(opened, p)
	}
	return opened, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// DefaultRegistry holds the built-in env and file providers.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("env", func(Settings) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = DefaultRegistry.Register("file", func(s Settings) (Provider, error) {
		return &FileProvider{Dir: s.FileDir}, nil
	})
}
