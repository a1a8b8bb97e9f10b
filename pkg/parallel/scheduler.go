// Package parallel provides the fork-join scheduler used by the voxel
// traversal engine.
//
// Work is described by a half-open range from package region. The scheduler
// bisects the range recursively until it reaches the grain size and hands the
// pieces to independent tasks. Forking is opportunistic: a half is handed to a
// new goroutine only while a worker slot is free, otherwise it runs inline on
// the current goroutine. Reductions split their body for every forked half and
// fold the partial results back with Join once both halves have completed.
//
// Usage:
//
//	s := parallel.New(runtime.NumCPU())
//	parallel.For(s, region.NewLinear(0, n), func(r region.Linear) {
//	    for i := r.Begin; i < r.End; i++ {
//	        process(i)
//	    }
//	})
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/errgroup"

	"voxelfunc/pkg/region"
)

// tracer writes to trace with key 'voxel'
func tracer() tracing.Trace {
	return tracing.Select("voxel")
}

const (
	// DefaultOversubscription is the number of tasks per worker the automatic
	// grain size aims for. More tasks than workers smooths out uneven partitions.
	DefaultOversubscription = 4
)

// Scheduler is a fork-join scheduler over a bounded number of workers.
// A Scheduler holds no goroutines between calls and is safe for concurrent use.
type Scheduler struct {
	// workers is the maximum number of goroutines running a single call,
	// including the calling goroutine
	workers int

	// grain is the partition size below which ranges are not split;
	// zero selects a grain from the range length
	grain int

	// oversubscription is the number of tasks per worker for automatic grains
	oversubscription int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithGrain fixes the grain size. Ranges with at most n elements are never
// split. A value <= 0 selects the grain automatically.
func WithGrain(n int) Option {
	return func(s *Scheduler) {
		s.grain = max(n, 0)
	}
}

// WithOversubscription sets how many tasks per worker the automatic grain
// aims for.
func WithOversubscription(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.oversubscription = n
		}
	}
}

// New creates a scheduler running at most workers goroutines per call.
// If workers <= 0, uses GOMAXPROCS.
func New(workers int, opts ...Option) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	s := &Scheduler{
		workers:          workers,
		oversubscription: DefaultOversubscription,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sequential returns a scheduler that runs every range inline on the calling
// goroutine without splitting it.
func Sequential() *Scheduler {
	return New(1)
}

var defaultScheduler atomic.Pointer[Scheduler]

// Default returns the scheduler used when a nil scheduler is passed.
func Default() *Scheduler {
	if s := defaultScheduler.Load(); s != nil {
		return s
	}
	defaultScheduler.CompareAndSwap(nil, New(0))
	return defaultScheduler.Load()
}

// SetDefault replaces the scheduler returned by Default. Passing nil restores
// a GOMAXPROCS sized scheduler.
func SetDefault(s *Scheduler) {
	if s == nil {
		s = New(0)
	}
	defaultScheduler.Store(s)
}

// Workers returns the maximum number of goroutines used per call.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Grain returns the configured grain size, zero meaning automatic.
func (s *Scheduler) Grain() int {
	return s.grain
}

// grainFor returns the grain used for a range of n elements.
func (s *Scheduler) grainFor(n int) int {
	if s.grain > 0 {
		return s.grain
	}
	tasks := s.workers * s.oversubscription
	return max(1, (n+tasks-1)/tasks)
}

// Body is a reduction task over ranges of type R. Split returns a body with
// the identity state for a sibling partition; Join folds a sibling's state
// into the receiver.
type Body[R any, B any] interface {
	Run(r R)
	Split() B
	Join(other B)
}

// For calls fn on disjoint sub-ranges covering r. Calls may run concurrently
// and in any order. For returns once every sub-range has been processed.
//
// A panic raised by fn is re-raised on the calling goroutine after all
// running tasks have stopped.
func For[R region.Range[R]](s *Scheduler, r R, fn func(R)) {
	if r.Len() == 0 {
		return
	}
	if s == nil {
		s = Default()
	}
	if s.workers == 1 {
		fn(r)
		return
	}

	f := newForker(s, r.Len())
	f.guard(func() { forRange(f, r, fn) })
	f.wait()
	tracer().Debugf("parallel for: %d elements, grain %d, %d forks", r.Len(), f.grain, f.forks.Load())
	f.rethrow()
}

func forRange[R region.Range[R]](f *forker, r R, fn func(R)) {
	for r.Divisible(f.grain) {
		a, b := r.Split()
		if f.spawn(func() { forRange(f, b, fn) }) {
			r = a
			continue
		}
		forRange(f, a, fn)
		r = b
	}
	fn(r)
}

// Reduce runs body over disjoint sub-ranges covering r and merges the
// partial results into body. Every forked sub-range runs on body.Split()
// and is joined back into its parent once both halves are done. The order
// of joins follows the split tree and is not deterministic, so Join must be
// commutative and associative for reproducible results.
func Reduce[R region.Range[R], B Body[R, B]](s *Scheduler, r R, body B) {
	if r.Len() == 0 {
		return
	}
	if s == nil {
		s = Default()
	}
	if s.workers == 1 {
		body.Run(r)
		return
	}

	f := newForker(s, r.Len())
	f.guard(func() { reduceRange(f, r, body) })
	f.wait()
	tracer().Debugf("parallel reduce: %d elements, grain %d, %d forks", r.Len(), f.grain, f.forks.Load())
	f.rethrow()
}

func reduceRange[R region.Range[R], B Body[R, B]](f *forker, r R, body B) {
	if !r.Divisible(f.grain) {
		body.Run(r)
		return
	}

	a, b := r.Split()
	rb := body.Split()
	var wg sync.WaitGroup
	wg.Add(1)
	if f.spawn(func() {
		defer wg.Done()
		reduceRange(f, b, rb)
	}) {
		reduceRange(f, a, body)
		wg.Wait()
		body.Join(rb)
		return
	}

	// No free worker: both halves share the current body
	reduceRange(f, a, body)
	reduceRange(f, b, body)
}

// forker tracks the goroutines of one For or Reduce call.
type forker struct {
	g     errgroup.Group
	grain int
	forks atomic.Int64

	mu       sync.Mutex
	panicked any
}

func newForker(s *Scheduler, n int) *forker {
	f := &forker{grain: s.grainFor(n)}
	// the calling goroutine is one of the workers
	f.g.SetLimit(s.workers - 1)
	return f
}

// spawn runs fn on a new goroutine if a worker slot is free.
func (f *forker) spawn(fn func()) bool {
	ok := f.g.TryGo(func() error {
		f.guard(fn)
		return nil
	})
	if ok {
		f.forks.Add(1)
	}
	return ok
}

// guard runs fn and records the first panic it raises.
func (f *forker) guard(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			f.mu.Lock()
			if f.panicked == nil {
				f.panicked = p
			}
			f.mu.Unlock()
		}
	}()
	fn()
}

func (f *forker) wait() {
	_ = f.g.Wait()
}

func (f *forker) rethrow() {
	if f.panicked == nil {
		return
	}
	tracer().Errorf("parallel task panicked: %v", f.panicked)
	panic(f.panicked)
}
