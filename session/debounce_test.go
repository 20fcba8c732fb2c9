package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer(t *testing.T) {
	t.Run("only the last trigger runs", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		var last, calls atomic.Int64

		for i := int64(1); i <= 5; i++ {
			i := i
			d.Trigger(func() {
				calls.Add(1)
				last.Store(i)
			})
			time.Sleep(2 * time.Millisecond)
		}

		eventually(t, func() bool { return calls.Load() == 1 }, "debounced call")
		time.Sleep(40 * time.Millisecond)
		if calls.Load() != 1 || last.Load() != 5 {
			t.Errorf("calls=%d last=%d, want 1 and 5", calls.Load(), last.Load())
		}
	})

	t.Run("cancel drops the pending call", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)
		var calls atomic.Int64
		d.Trigger(func() { calls.Add(1) })
		d.Cancel()
		time.Sleep(40 * time.Millisecond)
		if calls.Load() != 0 {
			t.Errorf("cancelled call ran %d times", calls.Load())
		}

		d.Trigger(func() { calls.Add(1) })
		eventually(t, func() bool { return calls.Load() == 1 }, "trigger after cancel")
	})

	t.Run("stop ignores later triggers", func(t *testing.T) {
		d := NewDebouncer(5 * time.Millisecond)
		var calls atomic.Int64
		d.Stop()
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(30 * time.Millisecond)
		if calls.Load() != 0 {
			t.Errorf("stopped debouncer ran %d times", calls.Load())
		}
	})
}
