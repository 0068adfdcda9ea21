package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/primetalk/goio/io"
)

var ErrNilResult = errors.New("result is nil")

// SafeBackgroundTask runs a blocking call with an optional timeout, turning
// panics and timeouts into errors.
type SafeBackgroundTask[T any] struct {
	fn        func() (*T, error)
	timeout   *time.Duration
	onError   func(error)
	onSuccess func(T)
}

// NewContextTask runs fn with a context cancelled when the timeout expires.
func NewContextTask(timeout time.Duration, fn func(context.Context) error) *SafeBackgroundTask[struct{}] {
	return (&SafeBackgroundTask[struct{}]{
		fn: func() (*struct{}, error) {
			callCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := fn(callCtx); err != nil {
				return nil, err
			}
			return &struct{}{}, nil
		},
	}).WithTimeout(timeout)
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// Run blocks until the task completes or times out.
func (t *SafeBackgroundTask[T]) Run() {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(ErrNilResult)
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.onError != nil {
			t.onError(result.Error)
		}
		return
	}

	if t.onSuccess != nil {
		t.onSuccess(result.Value)
	}
}
