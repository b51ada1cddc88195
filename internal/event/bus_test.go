package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/modelundo/internal/event/topic"
)

type payload struct{ N int }

func publish(t *testing.T, b Bus, tp string, n int) error {
	t.Helper()
	return b.Publish(context.Background(), NewEvent(topic.Topic(tp), payload{N: n}, "test"))
}

func TestBus_PublishDeliversToMatchingHandlers(t *testing.T) {
	b := NewBus()

	var exact, wild, other int
	mustSubscribe(t, b, "model.element.created", func(context.Context, any) error { exact++; return nil })
	mustSubscribe(t, b, "model.**", func(context.Context, any) error { wild++; return nil })
	mustSubscribe(t, b, "transaction.*", func(context.Context, any) error { other++; return nil })

	if err := publish(t, b, "model.element.created", 1); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := publish(t, b, "model.flushed", 2); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if exact != 1 || wild != 2 || other != 0 {
		t.Errorf("exact=%d wild=%d other=%d", exact, wild, other)
	}
}

func TestBus_PublishWithoutTopic(t *testing.T) {
	b := NewBus()
	if err := b.Publish(context.Background(), "plain string"); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestBus_PriorityOrder(t *testing.T) {
	b := NewBus()
	var order []string

	mustSubscribe(t, b, "a", func(context.Context, any) error { order = append(order, "low"); return nil }, WithPriority(PriorityLow))
	mustSubscribe(t, b, "a", func(context.Context, any) error { order = append(order, "high"); return nil }, WithPriority(PriorityHigh))
	mustSubscribe(t, b, "a", func(context.Context, any) error { order = append(order, "critical"); return nil }, WithPriority(PriorityCritical))

	_ = publish(t, b, "a", 0)

	want := []string{"critical", "high", "low"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_ReentrantPublish(t *testing.T) {
	b := NewBus()
	var inner int

	mustSubscribe(t, b, "outer", func(ctx context.Context, _ any) error {
		return b.Publish(ctx, NewEvent(topic.Topic("inner"), payload{}, "test"))
	})
	mustSubscribe(t, b, "inner", func(context.Context, any) error { inner++; return nil })

	if err := publish(t, b, "outer", 0); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if inner != 1 {
		t.Errorf("inner handler ran %d times", inner)
	}
}

func TestBus_HandlerErrorsAreJoined(t *testing.T) {
	b := NewBus()
	errA := errors.New("a failed")
	ran := false

	mustSubscribe(t, b, "x", func(context.Context, any) error { return errA })
	mustSubscribe(t, b, "x", func(context.Context, any) error { ran = true; return nil })

	err := publish(t, b, "x", 0)
	if !errors.Is(err, errA) {
		t.Errorf("err = %v, want wrapped %v", err, errA)
	}
	var he *HandlerError
	if !errors.As(err, &he) || he.Topic != "x" {
		t.Errorf("expected HandlerError for topic x, got %v", err)
	}
	if !ran {
		t.Error("second handler skipped after first failed")
	}
	if b.Stats().HandlerErrors != 1 {
		t.Error("error not counted")
	}
}

func TestBus_PanicRecovered(t *testing.T) {
	var reported any
	b := NewBus(WithBusPanicHandler(func(_ any, v any, _ []byte) { reported = v }))

	mustSubscribe(t, b, "x", func(context.Context, any) error { panic("oops") })

	err := publish(t, b, "x", 0)
	if !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("err = %v, want ErrHandlerPanic", err)
	}
	if reported != "oops" {
		t.Errorf("panic handler got %v", reported)
	}
}

func TestBus_PanicPropagation(t *testing.T) {
	b := NewBus(WithPanicPropagation(true))
	mustSubscribe(t, b, "x", func(context.Context, any) error { panic("assertion") })

	defer func() {
		if r := recover(); r != "assertion" {
			t.Errorf("recovered %v", r)
		}
	}()
	_ = publish(t, b, "x", 0)
	t.Fatal("expected panic")
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	sub := mustSubscribe(t, b, "x", func(context.Context, any) error { calls++; return nil })

	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := b.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe err = %v", err)
	}
	if err := b.Unsubscribe(nil); !errors.Is(err, ErrInvalidSubscription) {
		t.Errorf("nil Unsubscribe err = %v", err)
	}

	_ = publish(t, b, "x", 0)
	if calls != 0 {
		t.Error("handler called after unsubscribe")
	}
}

func TestBus_UnsubscribeDuringDelivery(t *testing.T) {
	b := NewBus()
	var second Subscription
	secondCalls := 0

	mustSubscribe(t, b, "x", func(context.Context, any) error {
		return b.Unsubscribe(second)
	}, WithPriority(PriorityHigh))
	second = mustSubscribe(t, b, "x", func(context.Context, any) error { secondCalls++; return nil })

	_ = publish(t, b, "x", 0)
	if secondCalls != 0 {
		t.Error("cancelled subscription still received the event")
	}
}

func TestBus_Stats(t *testing.T) {
	b := NewBus()
	sub := mustSubscribe(t, b, "x", func(context.Context, any) error { return nil })
	mustSubscribe(t, b, "x.*", func(context.Context, any) error { return nil })

	_ = publish(t, b, "x", 1)
	_ = publish(t, b, "x.y", 2)
	_ = publish(t, b, "unheard", 3)

	s := b.Stats()
	if s.EventsPublished != 2 || s.HandlersExecuted != 2 {
		t.Errorf("stats = %+v, want 2 events and 2 handlers", s)
	}
	if s.ActiveSubscribers != 2 {
		t.Errorf("ActiveSubscribers = %d, want 2", s.ActiveSubscribers)
	}

	if err := b.Unsubscribe(sub); err != nil {
		t.Fatal(err)
	}
	if b.Stats().ActiveSubscribers != 1 {
		t.Errorf("ActiveSubscribers = %d after unsubscribe", b.Stats().ActiveSubscribers)
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	b := NewBus()
	if _, err := b.Subscribe("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler err = %v", err)
	}
	if _, err := b.SubscribeFunc("", func(context.Context, any) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic err = %v", err)
	}
}

func TestAsHandler(t *testing.T) {
	b := NewBus()
	var got []int
	if _, err := b.Subscribe("x", AsHandler(func(_ context.Context, p payload) error {
		got = append(got, p.N)
		return nil
	})); err != nil {
		t.Fatal(err)
	}

	_ = publish(t, b, "x", 7)
	_ = b.Publish(context.Background(), NewEvent(topic.Topic("x"), "other payload", "test"))

	if len(got) != 1 || got[0] != 7 {
		t.Errorf("got %v, want [7]", got)
	}
}

func mustSubscribe(t *testing.T, b Bus, pattern string, fn HandlerFunc, opts ...SubscriptionOption) Subscription {
	t.Helper()
	sub, err := b.SubscribeFunc(topic.Topic(pattern), fn, opts...)
	if err != nil {
		t.Fatalf("SubscribeFunc(%q): %v", pattern, err)
	}
	return sub
}
