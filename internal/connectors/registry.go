package connectors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

type Descriptor struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type HealthStatus struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *Registry) Register(source Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}

	key := normalizeKey(source.Key())
	if key == "" {
		return fmt.Errorf("source key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[key]; exists {
		return fmt.Errorf("source %q already registered", key)
	}

	r.sources[key] = source
	return nil
}

// ReplaceKind swaps every source of the given kind for the provided set in one step.
// Sources of other kinds are untouched, so a profile reload never drops native sources.
func (r *Registry) ReplaceKind(kind string, sources []Source) error {
	next := make(map[string]Source, len(sources))
	for _, source := range sources {
		if source == nil {
			return fmt.Errorf("source is nil")
		}
		if source.Kind() != kind {
			return fmt.Errorf("source %q is %s, not %s", source.Key(), source.Kind(), kind)
		}
		key := normalizeKey(source.Key())
		if key == "" {
			return fmt.Errorf("source key is required")
		}
		if _, exists := next[key]; exists {
			return fmt.Errorf("source %q listed twice", key)
		}
		next[key] = source
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, existing := range r.sources {
		if existing.Kind() == kind {
			continue
		}
		if _, clash := next[key]; clash {
			return fmt.Errorf("source %q already registered as %s", key, existing.Kind())
		}
		next[key] = existing
	}

	r.sources = next
	return nil
}

func (r *Registry) Get(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.sources[normalizeKey(key)]
	return source, ok
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Descriptor, 0, len(r.sources))
	for _, source := range r.sources {
		items = append(items, Descriptor{
			Key:  source.Key(),
			Name: source.Name(),
			Kind: source.Kind(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})

	return items
}

func (r *Registry) Health(ctx context.Context) []HealthStatus {
	r.mu.RLock()
	list := make([]Source, 0, len(r.sources))
	for _, source := range r.sources {
		list = append(list, source)
	}
	r.mu.RUnlock()

	statuses := make([]HealthStatus, 0, len(list))
	for _, source := range list {
		err := source.HealthCheck(ctx)
		status := HealthStatus{
			Key:     source.Key(),
			Name:    source.Name(),
			Kind:    source.Kind(),
			Healthy: err == nil,
		}
		if err != nil {
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})

	return statuses
}
