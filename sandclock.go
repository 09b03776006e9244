package sandclock

import (
	"context"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/timex"
)

type (
	// Func is a blocking unit of work.
	Func func(args ...any) error

	// AsyncFunc is a suspending unit of work. It starts the work and returns a handle
	// that delivers one error, or is closed without a value on success.
	// A nil handle means the work already completed.
	AsyncFunc func(ctx context.Context, args ...any) <-chan error

	// TimedFunc is a blocking Func wrapped by a Clock.
	TimedFunc func(args ...any) (Result, error)

	// TimedAsyncFunc is an AsyncFunc wrapped by a Clock.
	TimedAsyncFunc func(ctx context.Context, args ...any) *Promise

	// Result is the aggregate of one timed run. The return values of the
	// wrapped callable are not kept.
	Result struct {
		Total      time.Duration
		Iterations int
	}

	// A Clock times callables with a fixed config, it is safe for concurrent use.
	Clock struct {
		cfg  Config
		sink Sink
	}

	// Promise is the completion handle of a TimedAsyncFunc call.
	Promise struct {
		done     chan struct{}
		result   Result
		err      error
		panicked bool
		panicVal any
	}
)

// runSeq numbers the runs of all clocks, so that sinks shared by
// concurrent runs can tell their events apart.
var runSeq uint64

// New returns a Clock built from DefaultConfig and opts.
func New(opts ...Option) (*Clock, error) {
	return NewWithConfig(DefaultConfig(), opts...)
}

// MustNew is like New but exits on misconfiguration.
func MustNew(opts ...Option) *Clock {
	c, err := New(opts...)
	logx.Must(err)
	return c
}

// NewWithConfig returns a Clock built from c and opts.
// Non-positive iterations and negative precision are rejected.
func NewWithConfig(c Config, opts ...Option) (*Clock, error) {
	o := clockOptions{Config: c}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}

	sink, err := o.buildSink()
	if err != nil {
		return nil, err
	}

	return &Clock{
		cfg:  o.Config,
		sink: sink,
	}, nil
}

// Time wraps fn with a Clock built from opts.
func Time(name string, fn Func, opts ...Option) (TimedFunc, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}

	return c.Wrap(name, fn), nil
}

// TimeAsync wraps fn with a Clock built from opts.
func TimeAsync(name string, fn AsyncFunc, opts ...Option) (TimedAsyncFunc, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}

	return c.WrapAsync(name, fn), nil
}

// Config returns the config of c.
func (c *Clock) Config() Config {
	return c.cfg
}

// Wrap returns a blocking function that runs fn the configured number of times.
// An empty name is replaced by the function name of fn.
func (c *Clock) Wrap(name string, fn Func) TimedFunc {
	if len(name) == 0 {
		name = funcName(fn)
	}

	return func(args ...any) (Result, error) {
		return c.run(name, false, args, func() error {
			return fn(args...)
		})
	}
}

// WrapAsync returns a suspending function that runs fn the configured number of times,
// one iteration after another, awaiting each handle before starting the next.
// A panic of fn is raised again by Promise.Await.
func (c *Clock) WrapAsync(name string, fn AsyncFunc) TimedAsyncFunc {
	if len(name) == 0 {
		name = funcName(fn)
	}

	return func(ctx context.Context, args ...any) *Promise {
		p := &Promise{
			done: make(chan struct{}),
		}

		go func() {
			defer func() {
				if v := recover(); v != nil {
					p.panicked = true
					p.panicVal = v
				}
				close(p.done)
			}()
			p.result, p.err = c.run(name, true, args, func() error {
				return await(ctx, fn(ctx, args...))
			})
		}()

		return p
	}
}

func (c *Clock) emit(e Event) {
	e.Precision = c.cfg.Precision
	c.sink.Emit(e)
}

// run stops at the first failing iteration and returns its error untouched,
// the summary is only reported for complete runs.
func (c *Clock) run(name string, async bool, args []any, call func() error) (Result, error) {
	id := atomic.AddUint64(&runSeq, 1)
	c.emit(Event{
		Run:   id,
		Kind:  RunStarted,
		Name:  name,
		Async: async,
		Args:  args,
	})

	var result Result
	for i := 0; i < c.cfg.Iterations; i++ {
		if c.cfg.Verbose {
			c.emit(Event{
				Run:   id,
				Kind:  IterationStarted,
				Name:  name,
				Async: async,
				Args:  args,
				Index: i,
			})
		}

		start := timex.Now()
		err := call()
		duration := timex.Since(start)
		if err != nil {
			return result, err
		}

		result.Total += duration
		result.Iterations++

		if c.cfg.Verbose {
			c.emit(Event{
				Run:      id,
				Kind:     IterationFinished,
				Name:     name,
				Async:    async,
				Index:    i,
				Duration: duration,
			})
		}
	}

	c.emit(Event{
		Run:        id,
		Kind:       RunFinished,
		Name:       name,
		Async:      async,
		Total:      result.Total,
		Iterations: result.Iterations,
	})

	return result, nil
}

// Seconds returns the total duration in seconds.
func (r Result) Seconds() float64 {
	return r.Total.Seconds()
}

// Done is closed when the timed run completes.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await waits for the timed run, or for ctx to be done.
// If the wrapped function panicked, Await panics with the same value.
func (p *Promise) Await(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		if p.panicked {
			panic(p.panicVal)
		}
		return p.result, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func await(ctx context.Context, handle <-chan error) error {
	if handle == nil {
		return nil
	}

	select {
	case err := <-handle:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}

	return "unknown"
}
