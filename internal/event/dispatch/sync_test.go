package dispatch

import (
	"context"
	"errors"
	"testing"
)

type testHandler struct {
	fn func(ctx context.Context, event any) error
}

func (h *testHandler) Handle(ctx context.Context, event any) error {
	return h.fn(ctx, event)
}

func newTestHandler(fn func(ctx context.Context, event any) error) Handler {
	return &testHandler{fn: fn}
}

func TestResult_Predicates(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		success bool
		isErr   bool
		isPanic bool
	}{
		{"success", Result{Success: true}, true, false, false},
		{"error", Result{Error: errors.New("boom")}, false, true, false},
		{"panic", Result{Panicked: true, PanicValue: "x"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsError(); got != tt.isErr {
				t.Errorf("IsError() = %v, want %v", got, tt.isErr)
			}
			if got := tt.result.IsPanic(); got != tt.isPanic {
				t.Errorf("IsPanic() = %v, want %v", got, tt.isPanic)
			}
		})
	}
}

func TestSyncDispatcher_Dispatch(t *testing.T) {
	d := NewSyncDispatcher()

	var got any
	result := d.Dispatch(context.Background(), "evt", newTestHandler(func(_ context.Context, event any) error {
		got = event
		return nil
	}))

	if !result.IsSuccess() {
		t.Fatalf("expected success, got %+v", result)
	}
	if got != "evt" {
		t.Errorf("handler received %v", got)
	}
	if s := d.Stats(); s.Dispatched != 1 || s.Succeeded != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestSyncDispatcher_Error(t *testing.T) {
	d := NewSyncDispatcher()
	wantErr := errors.New("handler failed")

	result := d.Dispatch(context.Background(), nil, newTestHandler(func(context.Context, any) error {
		return wantErr
	}))

	if !errors.Is(result.Error, wantErr) {
		t.Errorf("Error = %v, want %v", result.Error, wantErr)
	}
	if d.Stats().Failed != 1 {
		t.Error("failure not counted")
	}
}

func TestSyncDispatcher_RecoversPanic(t *testing.T) {
	var reported any
	d := NewSyncDispatcher(WithPanicHandler(func(_ any, v any, stack []byte) {
		reported = v
		if len(stack) == 0 {
			t.Error("stack not captured")
		}
	}))

	result := d.Dispatch(context.Background(), nil, newTestHandler(func(context.Context, any) error {
		panic("kaboom")
	}))

	if !result.IsPanic() || result.PanicValue != "kaboom" {
		t.Errorf("unexpected result %+v", result)
	}
	if reported != "kaboom" {
		t.Errorf("panic handler got %v", reported)
	}
}

func TestSyncDispatcher_PropagatesPanic(t *testing.T) {
	reported := false
	d := NewSyncDispatcher(
		WithPanicHandler(func(any, any, []byte) { reported = true }),
		WithPanicPropagation(true),
	)

	defer func() {
		r := recover()
		if r != "fatal" {
			t.Errorf("recovered %v, want fatal", r)
		}
		if !reported {
			t.Error("panic handler not called before propagation")
		}
	}()

	d.Dispatch(context.Background(), nil, newTestHandler(func(context.Context, any) error {
		panic("fatal")
	}))
	t.Fatal("Dispatch should have panicked")
}

func TestSyncDispatcher_CancelledContext(t *testing.T) {
	d := NewSyncDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := d.Dispatch(ctx, nil, newTestHandler(func(context.Context, any) error {
		called = true
		return nil
	}))

	if !called {
		t.Error("handler not run for a cancelled context")
	}
	if !result.IsSuccess() {
		t.Errorf("expected success, got %+v", result)
	}
	if d.Stats().Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", d.Stats().Succeeded)
	}
}
