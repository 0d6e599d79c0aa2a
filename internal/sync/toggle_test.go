package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestToggle(t *testing.T) {
	ctx := context.Background()
	tog := new(Toggle)

	tog.Set(true)
	t.Run("late Wait()", func(t *testing.T) {
		if err := tog.Wait(ctx); err != nil {
			t.Errorf("%T.Wait(ctx) error %v", tog, err)
		}
		if !tog.State() {
			t.Errorf("%T.State() after Set(true) got false", tog)
		}
	})

	t.Run("idempotent Set doesn't block", func(t *testing.T) {
		for _, set := range []bool{true, false, true} {
			for i := 0; i < 10; i++ {
				tog.Set(set)
			}
		}
	})

	tog.Set(false)
	group, gCtx := errgroup.WithContext(ctx)
	var unblocked atomic.Uint64
	for i := 0; i < 10; i++ {
		group.Go(func() error {
			if err := tog.Wait(gCtx); err != nil {
				return err
			}
			unblocked.Add(1)
			return nil
		})
	}

	t.Run("blocks", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		defer cancel()

		if got, want := tog.Wait(ctx), context.DeadlineExceeded; got != want {
			t.Errorf("%T.Wait([ctx with deadline]) got %v; want %v", tog, got, want)
		}
		if n := unblocked.Load(); n > 0 {
			t.Fatalf("%d go routines unblocked", n)
		}
	})

	tog.Set(true)
	if err := group.Wait(); err != nil {
		t.Errorf("%T.Wait(ctx) error %v", tog, err)
	}
	if got, want := unblocked.Load(), uint64(10); got != want {
		t.Errorf("%d go routines unblocked; want %d", got, want)
	}
}

func TestToggleClose(t *testing.T) {
	ctx := context.Background()

	for _, on := range []bool{false, true} {
		tog := new(Toggle)
		tog.Set(on)

		var group errgroup.Group
		group.Go(func() error {
			if got, want := tog.Wait(ctx), ErrToggleClosed; got != want && !on {
				t.Errorf("%T.Wait() got %v; want %v", tog, got, want)
			}
			return nil
		})
		tog.Close()
		tog.Close()
		group.Wait() //nolint:errcheck // always nil

		if got, want := tog.Wait(ctx), ErrToggleClosed; got != want {
			t.Errorf("%T.Wait() after Close() got %v; want %v", tog, got, want)
		}
		tog.Set(!on)
		if got := tog.State(); got != on {
			t.Errorf("%T.State() after Close() then Set(%t) got %t; want unchanged %t", tog, !on, got, on)
		}
	}
}
