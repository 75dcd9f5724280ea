// Package future provides a deferred value that settles exactly once.
package future

import (
	"context"
	"sync"

	"github.com/lexlapax/hookwrap/pkg/errors"
)

// Future is a value that is not yet available. It settles once, either
// resolved with a value or rejected with an error; later settlements are
// ignored. The zero value is not usable; use New, Go, Resolved or Rejected.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// New returns a pending future and the functions that settle it.
func New() (*Future, func(any), func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve, f.reject
}

// Go runs fn on a new goroutine and settles the future with its outcome.
// A panic in fn rejects the future.
func Go(fn func() (any, error)) *Future {
	f, resolve, reject := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(errors.FromPanic(r))
			}
		}()
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return f
}

// Resolved returns a future already resolved with v.
func Resolved(v any) *Future {
	f, resolve, _ := New()
	resolve(v)
	return f
}

// Rejected returns a future already rejected with err, or with
// errors.ErrRejectedNil when err is nil.
func Rejected(err error) *Future {
	f, _, reject := New()
	reject(err)
	return f
}

func (f *Future) resolve(v any) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// reject settles f with err. A nil err still rejects, with
// errors.ErrRejectedNil.
func (f *Future) reject(err error) {
	if err == nil {
		err = errors.ErrRejectedNil
	}
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then returns a future settled by the continuation matching f's outcome.
// A nil continuation passes the outcome through unchanged. Exactly one of
// onResolve and onReject runs.
func (f *Future) Then(onResolve func(any) (any, error), onReject func(error) (any, error)) *Future {
	return Go(func() (any, error) {
		<-f.done
		if f.err != nil {
			if onReject == nil {
				return nil, f.err
			}
			return onReject(f.err)
		}
		if onResolve == nil {
			return f.value, nil
		}
		return onResolve(f.value)
	})
}
