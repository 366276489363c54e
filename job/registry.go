package job

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/jobrunner/errors"
)

// Registry maps handler identifiers of the form "<namespace>.<TypeName>" to
// job factories. Handlers are registered at startup and resolved while the
// runner parses its configuration.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Factory
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]map[string]Factory)}
}

// SplitIdentifier splits a handler identifier at its last dot.
func SplitIdentifier(id string) (namespace, typeName string, err error) {
	i := strings.LastIndex(id, ".")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("identifier %q must have the form <namespace>.<TypeName>", id)
	}
	return id[:i], id[i+1:], nil
}

// Register adds a factory under the given identifier.
func (r *Registry) Register(id string, f Factory) error {
	ns, typ, err := SplitIdentifier(id)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("nil factory for %q", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	types, ok := r.namespaces[ns]
	if !ok {
		types = make(map[string]Factory)
		r.namespaces[ns] = types
	}
	if _, exists := types[typ]; exists {
		return fmt.Errorf("handler %q already registered", id)
	}
	types[typ] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(id string, f Factory) {
	if err := r.Register(id, f); err != nil {
		panic(err)
	}
}

// Resolve returns the factory registered under id.
func (r *Registry) Resolve(id string) (Factory, error) {
	ns, typ, err := SplitIdentifier(id)
	if err != nil {
		return nil, errors.Resolution(id, err.Error())
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	types, ok := r.namespaces[ns]
	if !ok {
		return nil, errors.Resolution(id, fmt.Sprintf("namespace %q not found", ns))
	}
	f, ok := types[typ]
	if !ok {
		return nil, errors.Resolution(id, fmt.Sprintf("type %q not found in namespace %q", typ, ns))
	}
	return f, nil
}

// Namespaces returns the sorted registered namespaces.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Types returns the sorted type names registered in a namespace.
func (r *Registry) Types(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := r.namespaces[namespace]
	names := make([]string, 0, len(types))
	for typ := range types {
		names = append(names, typ)
	}
	sort.Strings(names)
	return names
}
