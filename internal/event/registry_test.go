package event

import (
	"context"
	"testing"
)

func noop(context.Context, any) error { return nil }

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	a := newSubscription("a", "model.**", HandlerFunc(noop))
	b := newSubscription("b", "model.**", HandlerFunc(noop))
	r.Add(a)
	r.Add(b)

	if r.CountActive() != 2 {
		t.Fatalf("CountActive() = %d, want 2", r.CountActive())
	}
	if got := r.Match("model.flushed"); len(got) != 2 {
		t.Fatalf("Match() returned %d subs", len(got))
	}

	if !r.Remove("a") {
		t.Fatal("Remove(a) failed")
	}
	if r.Remove("a") {
		t.Error("Remove(a) twice should fail")
	}
	if got := r.Match("model.flushed"); len(got) != 1 || got[0].ID() != "b" {
		t.Errorf("Match() after remove = %v", got)
	}

	r.Remove("b")
	if got := r.Match("model.flushed"); len(got) != 0 {
		t.Error("pattern should be pruned once its last subscriber is removed")
	}
}

func TestRegistry_MatchSkipsInactive(t *testing.T) {
	r := NewRegistry()
	a := newSubscription("a", "x", HandlerFunc(noop))
	b := newSubscription("b", "x", HandlerFunc(noop))
	r.Add(a)
	r.Add(b)
	a.Cancel()

	if got := r.Match("x"); len(got) != 1 || got[0].ID() != "b" {
		t.Errorf("Match() = %v, want only b", got)
	}
	if r.CountActive() != 1 {
		t.Errorf("CountActive() = %d, want 1", r.CountActive())
	}
}

func TestRegistry_StableOrderWithinPriority(t *testing.T) {
	r := NewRegistry()
	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		r.Add(newSubscription(id, "x", HandlerFunc(noop)))
	}

	got := r.Match("x")
	for i, id := range ids {
		if got[i].ID() != id {
			t.Fatalf("order[%d] = %s, want %s", i, got[i].ID(), id)
		}
	}
}

func TestSubscriptionStateString(t *testing.T) {
	if SubscriptionStateCancelled.String() != "cancelled" || SubscriptionState(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if PriorityHigh.String() != "high" || PriorityLow.String() != "low" {
		t.Error("unexpected priority names")
	}
}
