package registry

import (
	"context"
	"sort"
	"sync"
)

var _ Registry = &MockRegistry{}

// MockRegistry keeps instances in memory. Register honours ctx the way the etcd lease
// does: once ctx is done the instance is dropped.
type MockRegistry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	closed    bool
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{instances: make(map[string]*Instance)}
}

func (m *MockRegistry) Register(ctx context.Context, instance *Instance) error {
	if instance == nil {
		return ErrInstanceIsNil
	}
	if instance.ID == "" {
		return ErrInstanceIDIsEmpty
	}
	cp := *instance

	m.mu.Lock()
	m.instances[cp.ID] = &cp
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if cur, ok := m.instances[cp.ID]; ok && cur == &cp {
			delete(m.instances, cp.ID)
		}
		m.mu.Unlock()
	}()
	return nil
}

func (m *MockRegistry) Deregister(_ context.Context, id string) error {
	if id == "" {
		return ErrInstanceIDIsEmpty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return ErrNotRegistered
	}
	delete(m.instances, id)
	return nil
}

func (m *MockRegistry) List(_ context.Context) ([]*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRegistry) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockRegistry) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
