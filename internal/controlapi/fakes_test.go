package controlapi_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// memoryRepo is an in-memory store.Repository.
type memoryRepo struct {
	mu       sync.Mutex
	defs     map[string]strategy.Definition
	fields   map[string]strategy.ContextField
	segments map[string]strategy.Segment

	// failWith, when set, is returned by every call.
	failWith error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		defs:     make(map[string]strategy.Definition),
		fields:   make(map[string]strategy.ContextField),
		segments: make(map[string]strategy.Segment),
	}
}

func (m *memoryRepo) ListDefinitions(_ context.Context) ([]strategy.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]strategy.Definition, 0, len(m.defs))
	for _, name := range slices.Sorted(maps.Keys(m.defs)) {
		out = append(out, m.defs[name])
	}
	return out, nil
}

func (m *memoryRepo) GetDefinition(_ context.Context, name string) (*strategy.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	d, ok := m.defs[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, store.ErrNotFound)
	}
	return &d, nil
}

func (m *memoryRepo) CreateDefinition(_ context.Context, d *strategy.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.defs[d.Name]; ok {
		return fmt.Errorf("strategy %q: %w", d.Name, store.ErrConflict)
	}
	m.defs[d.Name] = *d
	return nil
}

func (m *memoryRepo) UpdateDefinition(_ context.Context, d *strategy.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.defs[d.Name]; !ok {
		return fmt.Errorf("strategy %q: %w", d.Name, store.ErrNotFound)
	}
	m.defs[d.Name] = *d
	return nil
}

func (m *memoryRepo) DeleteDefinition(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.defs[name]; !ok {
		return fmt.Errorf("strategy %q: %w", name, store.ErrNotFound)
	}
	delete(m.defs, name)
	return nil
}

func (m *memoryRepo) ListContextFields(_ context.Context) ([]strategy.ContextField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]strategy.ContextField, 0, len(m.fields))
	for _, name := range slices.Sorted(maps.Keys(m.fields)) {
		out = append(out, m.fields[name])
	}
	return out, nil
}

func (m *memoryRepo) CreateContextField(_ context.Context, f *strategy.ContextField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.fields[f.Name]; ok {
		return fmt.Errorf("context field %q: %w", f.Name, store.ErrConflict)
	}
	m.fields[f.Name] = *f
	return nil
}

func (m *memoryRepo) DeleteContextField(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.fields[name]; !ok {
		return fmt.Errorf("context field %q: %w", name, store.ErrNotFound)
	}
	delete(m.fields, name)
	return nil
}

func (m *memoryRepo) ListSegments(_ context.Context) ([]strategy.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]strategy.Segment, 0, len(m.segments))
	for _, name := range slices.Sorted(maps.Keys(m.segments)) {
		out = append(out, m.segments[name])
	}
	return out, nil
}

func (m *memoryRepo) GetSegment(_ context.Context, name string) (*strategy.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	seg, ok := m.segments[name]
	if !ok {
		return nil, fmt.Errorf("segment %q: %w", name, store.ErrNotFound)
	}
	return &seg, nil
}

func (m *memoryRepo) CreateSegment(_ context.Context, seg *strategy.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.segments[seg.Name]; ok {
		return fmt.Errorf("segment %q: %w", seg.Name, store.ErrConflict)
	}
	m.segments[seg.Name] = *seg
	return nil
}

func (m *memoryRepo) UpdateSegment(_ context.Context, seg *strategy.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.segments[seg.Name]; !ok {
		return fmt.Errorf("segment %q: %w", seg.Name, store.ErrNotFound)
	}
	m.segments[seg.Name] = *seg
	return nil
}

func (m *memoryRepo) DeleteSegment(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.segments[name]; !ok {
		return fmt.Errorf("segment %q: %w", name, store.ErrNotFound)
	}
	delete(m.segments, name)
	return nil
}

func (m *memoryRepo) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

var errDatabaseDown = errors.New("connection refused")

// change is one published registry change.
type change struct {
	Kind string
	Name string
}

// recordingPublisher captures published changes on a buffered channel.
type recordingPublisher struct {
	changes chan change
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{changes: make(chan change, 16)}
}

func (p *recordingPublisher) PublishChange(_ context.Context, kind, name string) error {
	p.changes <- change{Kind: kind, Name: name}
	return nil
}
