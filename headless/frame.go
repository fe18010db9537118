package headless

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameCoalescer runs fn at most once per frame no matter how often it is
// triggered within that frame.
type FrameCoalescer struct {
	frame time.Duration
	fn    func()

	pending atomic.Bool
	mu      sync.Mutex
	timer   *time.Timer
}

func NewFrameCoalescer(frame time.Duration, fn func()) *FrameCoalescer {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &FrameCoalescer{frame: frame, fn: fn}
}

func (f *FrameCoalescer) Trigger() {
	if !f.pending.CompareAndSwap(false, true) {
		return
	}
	f.mu.Lock()
	f.timer = time.AfterFunc(f.frame, f.fire)
	f.mu.Unlock()
}

// Flush runs a pending call now instead of at the end of the frame.
func (f *FrameCoalescer) Flush() {
	f.mu.Lock()
	t := f.timer
	f.mu.Unlock()
	if t != nil && t.Stop() {
		f.fire()
	}
}

func (f *FrameCoalescer) fire() {
	if f.pending.CompareAndSwap(true, false) {
		f.fn()
	}
}
