package render

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/AnatoleLucet/sigl/gpu"
	"github.com/AnatoleLucet/sigl/log"
)

var ErrStopped = errors.New("render: looper stopped")

// FrameFunc renders one frame on the GL goroutine.
type FrameFunc func(ctx *gpu.Context) (Stats, error)

// Looper is the GL goroutine. It owns the gpu.Context for the device it
// runs and is the only writer to it: other goroutines hand it work through
// Post and Do, and ask for frames with RequestFrame or Frame.
type Looper struct {
	lg    *log.Logger
	frame FrameFunc

	work   chan func(*gpu.Context)
	frames chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	stats   Stats
	lastErr error
}

func NewLooper(lg *log.Logger, frame FrameFunc) *Looper {
	return &Looper{
		lg:     lg,
		frame:  frame,
		work:   make(chan func(*gpu.Context), 64),
		frames: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Run creates the context for dev and serves work and frame requests until
// ctx is canceled. The context is released on return. Run may only be
// called once.
func (l *Looper) Run(ctx context.Context, dev gpu.Device) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	defer l.lg.CatchAndReportCrash()

	gc := gpu.NewContext(dev, l.lg)
	defer gc.Release()

	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			st := l.stats
			l.mu.Unlock()
			l.lg.Info("render looper stopped", "stats", st)
			return nil

		case fn := <-l.work:
			fn(gc)

		case <-l.frames:
			l.runFrame(gc)
		}
	}
}

func (l *Looper) runFrame(gc *gpu.Context) (Stats, error) {
	st, err := l.frame(gc)

	l.mu.Lock()
	l.stats.Merge(st)
	l.lastErr = err
	l.mu.Unlock()

	if err != nil {
		l.lg.Warn("frame rendered with errors", "error", err)
	}
	return st, err
}

// Post queues fn to run on the GL goroutine. It does not wait for fn.
func (l *Looper) Post(fn func(ctx *gpu.Context)) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.work <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Do runs fn on the GL goroutine and waits for its result.
func (l *Looper) Do(ctx context.Context, fn func(gc *gpu.Context) error) error {
	err, perr := call(ctx, l, fn)
	if perr != nil {
		return perr
	}
	return err
}

// call posts fn and waits for its result. The second error reports why no
// result came back.
func call[T any](ctx context.Context, l *Looper, fn func(gc *gpu.Context) T) (T, error) {
	var zero T

	resc := make(chan T, 1)
	if err := l.Post(func(gc *gpu.Context) { resc <- fn(gc) }); err != nil {
		return zero, err
	}

	select {
	case r := <-resc:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.done:
		select {
		case r := <-resc:
			return r, nil
		default:
			return zero, ErrStopped
		}
	}
}

// RequestFrame asks for a frame without waiting for it. Requests made
// while one is already pending are coalesced.
func (l *Looper) RequestFrame() {
	select {
	case l.frames <- struct{}{}:
	default:
	}
}

// Frame renders a frame on the GL goroutine and returns its stats.
func (l *Looper) Frame(ctx context.Context) (Stats, error) {
	type result struct {
		st  Stats
		err error
	}

	r, err := call(ctx, l, func(gc *gpu.Context) result {
		st, err := l.runFrame(gc)
		return result{st, err}
	})
	if err != nil {
		return Stats{}, err
	}
	return r.st, r.err
}

// Stats returns the stats accumulated over every frame rendered so far.
func (l *Looper) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.stats
}

// Err returns the error of the last frame.
func (l *Looper) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lastErr
}

// Done is closed once Run has returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}
