package event

import (
	"sort"
	"sync"

	"github.com/dshills/modelundo/internal/event/topic"
)

// Registry manages subscriptions organized by topic pattern.
// It is safe for concurrent access; lookups return copies so that handlers
// may change subscriptions while an event is being delivered.
type Registry struct {
	mu   sync.RWMutex
	subs map[topic.Topic][]*subscription
	byID map[string]*subscription
	trie *topic.Trie
	seq  map[string]uint64
	next uint64
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[topic.Topic][]*subscription),
		byID: make(map[string]*subscription),
		trie: topic.NewTrie(),
		seq:  make(map[string]uint64),
	}
}

// Add adds a subscription for its topic pattern.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pattern := sub.Topic()
	r.subs[pattern] = append(r.subs[pattern], sub)
	r.byID[sub.ID()] = sub
	r.seq[sub.ID()] = r.next
	r.next++
	r.trie.Insert(pattern)
}

// Remove removes a subscription by ID.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	pattern := sub.Topic()
	subs := r.subs[pattern]
	for i, s := range subs {
		if s.ID() == subID {
			r.subs[pattern] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[pattern]) == 0 {
		delete(r.subs, pattern)
		r.trie.Delete(pattern)
	}

	delete(r.byID, subID)
	delete(r.seq, subID)
	return true
}

// Match returns all active subscriptions whose pattern matches the event
// topic, ordered by priority and then by registration order.
func (r *Registry) Match(eventTopic topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*subscription
	for _, pattern := range r.trie.Match(eventTopic) {
		for _, sub := range r.subs[pattern] {
			if sub.IsActive() {
				all = append(all, sub)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		pi, pj := all[i].Config().Priority, all[j].Config().Priority
		if pi != pj {
			return pi < pj
		}
		return r.seq[all[i].ID()] < r.seq[all[j].ID()]
	})
	return all
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}
