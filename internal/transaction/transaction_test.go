package transaction

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/dshills/modelundo/internal/event"
)

func newRecorded(t *testing.T) (*Coordinator, *[]string) {
	t.Helper()
	bus := event.NewBus()
	var seen []string
	if _, err := bus.SubscribeFunc(TopicAll, func(_ context.Context, evt any) error {
		switch event.Payload(evt).(type) {
		case Begin:
			seen = append(seen, "begin")
		case Commit:
			seen = append(seen, "commit")
		case Rollback:
			seen = append(seen, "rollback")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return New(bus), &seen
}

func TestCoordinator_BeginCommit(t *testing.T) {
	ctx := context.Background()
	c, seen := newRecorded(t)

	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.InTransaction() {
		t.Error("InTransaction() = false after Begin")
	}
	if err := c.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if c.InTransaction() {
		t.Error("InTransaction() = true after Commit")
	}
	if !slices.Equal(*seen, []string{"begin", "commit"}) {
		t.Errorf("events = %v", *seen)
	}
}

func TestCoordinator_NestedPublishesOnce(t *testing.T) {
	ctx := context.Background()
	c, seen := newRecorded(t)

	_ = c.Begin(ctx)
	_ = c.Begin(ctx)
	if c.Depth() != 2 {
		t.Errorf("Depth() = %d", c.Depth())
	}
	_ = c.Commit(ctx)
	_ = c.Commit(ctx)

	if !slices.Equal(*seen, []string{"begin", "commit"}) {
		t.Errorf("events = %v", *seen)
	}
}

func TestCoordinator_NestedRollbackIsRollbackOnly(t *testing.T) {
	ctx := context.Background()
	c, seen := newRecorded(t)

	_ = c.Begin(ctx)
	_ = c.Begin(ctx)
	_ = c.Rollback(ctx)
	err := c.Commit(ctx)

	if !errors.Is(err, ErrRolledBack) {
		t.Errorf("outer Commit err = %v, want ErrRolledBack", err)
	}
	if !slices.Equal(*seen, []string{"begin", "rollback"}) {
		t.Errorf("events = %v", *seen)
	}

	// The flag does not leak into the next transaction.
	*seen = nil
	_ = c.Begin(ctx)
	if err := c.Commit(ctx); err != nil {
		t.Errorf("next Commit err = %v", err)
	}
	if !slices.Equal(*seen, []string{"begin", "commit"}) {
		t.Errorf("events = %v", *seen)
	}
}

func TestCoordinator_FailedBeginClosesLevel(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	errBegin := errors.New("begin refused")

	var seen []string
	fail := true
	if _, err := bus.SubscribeFunc(TopicAll, func(_ context.Context, evt any) error {
		switch event.Payload(evt).(type) {
		case Begin:
			seen = append(seen, "begin")
			if fail {
				fail = false
				return errBegin
			}
		case Commit:
			seen = append(seen, "commit")
		case Rollback:
			seen = append(seen, "rollback")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	c := New(bus)

	err := c.Run(ctx, func(context.Context) error {
		t.Error("fn ran after a failed begin")
		return nil
	})
	if !errors.Is(err, errBegin) {
		t.Fatalf("Run err = %v, want %v", err, errBegin)
	}
	if c.InTransaction() || c.Depth() != 0 {
		t.Fatalf("Depth() = %d after failed begin", c.Depth())
	}

	if err := c.Run(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if want := []string{"begin", "rollback", "begin", "commit"}; !slices.Equal(seen, want) {
		t.Errorf("events = %v, want %v", seen, want)
	}
}

func TestCoordinator_NoTransaction(t *testing.T) {
	ctx := context.Background()
	c, seen := newRecorded(t)

	var te *Error
	if err := c.Commit(ctx); !errors.Is(err, ErrNoTransaction) || !errors.As(err, &te) || te.Op != "commit" {
		t.Errorf("Commit err = %v", err)
	}
	if err := c.Rollback(ctx); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("Rollback err = %v", err)
	}
	if len(*seen) != 0 {
		t.Errorf("events published without a transaction: %v", *seen)
	}
}

func TestCoordinator_Run(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(context.Context) error
		wantErr error
		want    []string
	}{
		{"success", func(context.Context) error { return nil }, nil, []string{"begin", "commit"}},
		{"failure", func(context.Context) error { return errBoom }, errBoom, []string{"begin", "rollback"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, seen := newRecorded(t)
			err := c.Run(ctx, tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run err = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(*seen, tt.want) {
				t.Errorf("events = %v, want %v", *seen, tt.want)
			}
			if c.InTransaction() {
				t.Error("transaction left open")
			}
		})
	}
}

func TestCoordinator_RunPanicRollsBack(t *testing.T) {
	c, seen := newRecorded(t)

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Errorf("recovered %v", r)
			}
		}()
		_ = c.Run(context.Background(), func(context.Context) error { panic("kaboom") })
	}()

	if !slices.Equal(*seen, []string{"begin", "rollback"}) {
		t.Errorf("events = %v", *seen)
	}
	if c.InTransaction() {
		t.Error("transaction left open after panic")
	}
}

func TestCoordinator_NilBus(t *testing.T) {
	c := New(nil)
	if err := c.Run(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("Run err = %v", err)
	}
}
