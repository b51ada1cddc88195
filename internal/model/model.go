package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/event/topic"
	"github.com/dshills/modelundo/internal/logging"
)

// Model is the element registry. Mutations are expected from a single
// goroutine; the registry lock only keeps lookups from other goroutines
// consistent. Element accessors are not synchronized with mutations.
type Model struct {
	mu       sync.RWMutex
	bus      event.Bus
	meta     *Metamodel
	logger   *logging.Logger
	elements map[ID]*Element
	seq      uint64
	deleting map[ID]bool
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for publish failures.
func WithLogger(l *logging.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates an empty model that publishes its mutations on bus.
// A nil bus disables publishing; a nil metamodel selects DefaultMetamodel.
func New(bus event.Bus, meta *Metamodel, opts ...Option) *Model {
	if meta == nil {
		meta = DefaultMetamodel()
	}
	m := &Model{
		bus:      bus,
		meta:     meta,
		logger:   logging.NullLogger,
		elements: make(map[ID]*Element),
		deleting: make(map[ID]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("model")
	return m
}

// Metamodel returns the model's metamodel.
func (m *Model) Metamodel() *Metamodel { return m.meta }

// Get returns the element with the given ID.
func (m *Model) Get(id ID) (*Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elements[id]
	return e, ok
}

// Len returns the number of elements.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.elements)
}

// Elements returns all elements in creation order.
func (m *Model) Elements() []*Element {
	m.mu.RLock()
	all := make([]*Element, 0, len(m.elements))
	for _, e := range m.elements {
		all = append(all, e)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	return all
}

// Select returns the elements that are instances of the named class.
func (m *Model) Select(class string) []*Element {
	var out []*Element
	for _, e := range m.Elements() {
		if e.class.IsA(class) {
			out = append(out, e)
		}
	}
	return out
}

// Create adds a new element of the named class.
func (m *Model) Create(ctx context.Context, class string) (*Element, error) {
	c, ok := m.meta.Class(class)
	if !ok {
		return nil, &UnknownClassError{Class: class}
	}

	m.mu.Lock()
	m.seq++
	e := newElement(ID(uuid.NewString()), c, m.seq)
	m.elements[e.id] = e
	m.mu.Unlock()

	m.publish(ctx, ElementCreated{Registry: m, Element: e})
	return e, nil
}

// Delete unlinks an element from every association, cascading deletion
// through composite ends, and then removes it. Each step is published.
func (m *Model) Delete(ctx context.Context, id ID) error {
	m.mu.Lock()
	e, ok := m.elements[id]
	if !ok {
		m.mu.Unlock()
		return notFound(id)
	}
	if m.deleting[id] {
		m.mu.Unlock()
		return nil
	}
	m.deleting[id] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.deleting, id)
		m.mu.Unlock()
	}()

	if err := m.unlink(ctx, e); err != nil {
		return fmt.Errorf("delete %s: %w", e, err)
	}

	m.mu.Lock()
	delete(m.elements, id)
	m.mu.Unlock()

	m.publish(ctx, ElementDeleted{Registry: m, Element: e})
	return nil
}

func (m *Model) unlink(ctx context.Context, e *Element) error {
	for _, name := range e.class.AssociationNames() {
		assoc, _ := e.class.Association(name)

		var targets []ID
		if assoc.Upper == One {
			if t := e.refs[name]; t != "" {
				targets = []ID{t}
			}
		} else {
			targets = e.Refs(name)
		}

		for _, t := range targets {
			if assoc.Composite {
				if err := m.deleteIfPresent(ctx, t); err != nil {
					return err
				}
			}
			if err := m.detach(ctx, e.id, assoc, t); err != nil {
				return err
			}
		}
	}

	return m.dropIncoming(ctx, e.id)
}

func (m *Model) deleteIfPresent(ctx context.Context, id ID) error {
	if _, ok := m.Get(id); !ok {
		return nil
	}
	return m.Delete(ctx, id)
}

// dropIncoming clears references to id held through ends that have no
// opposite, since those are not reached by unlinking the element itself.
func (m *Model) dropIncoming(ctx context.Context, id ID) error {
	for _, other := range m.Elements() {
		if other.id == id {
			continue
		}
		for _, name := range other.class.AssociationNames() {
			assoc, _ := other.class.Association(name)
			if assoc.Opposite != "" || !other.Linked(name, id) {
				continue
			}
			if err := m.detach(ctx, other.id, assoc, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Discard removes an element without unlinking it and publishes
// ElementDeleted. It does nothing if the element is already gone.
func (m *Model) Discard(ctx context.Context, id ID) error {
	m.mu.Lock()
	e, ok := m.elements[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.elements, id)
	m.mu.Unlock()

	m.publish(ctx, ElementDeleted{Registry: m, Element: e})
	return nil
}

// Restore re-inserts a previously removed element and publishes
// ElementCreated.
func (m *Model) Restore(ctx context.Context, e *Element) error {
	if e == nil {
		return fmt.Errorf("restore: %w", ErrNotFound)
	}
	if _, ok := m.meta.Class(e.class.Name); !ok {
		return &UnknownClassError{Class: e.class.Name}
	}

	m.mu.Lock()
	if _, taken := m.elements[e.id]; taken {
		m.mu.Unlock()
		return fmt.Errorf("restore %s: %w", e, ErrExists)
	}
	m.elements[e.id] = e
	m.mu.Unlock()

	m.publish(ctx, ElementCreated{Registry: m, Element: e})
	return nil
}

// Flush drops every element without publishing mutations, then publishes
// Flushed.
func (m *Model) Flush(ctx context.Context) {
	m.mu.Lock()
	m.elements = make(map[ID]*Element)
	m.deleting = make(map[ID]bool)
	m.mu.Unlock()

	m.publishEvent(ctx, TopicFlushed, Flushed{Registry: m})
}

func (m *Model) lookup(id ID) (*Element, error) {
	e, ok := m.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (m *Model) publish(ctx context.Context, mut Mutation) {
	m.publishEvent(ctx, mut.Kind().Topic(), mut)
}

func (m *Model) publishEvent(ctx context.Context, t topic.Topic, payload any) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, event.NewEvent(t, payload, "model")); err != nil {
		m.logger.Warn("publish %s: %v", t, err)
	}
}
