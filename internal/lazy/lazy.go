// Package lazy provides a compute-once cell for values that are expensive to
// produce and may never be read.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Value holds the result of a function that runs on the first call to Get.
// The result, including any error, is memoized for the lifetime of the Value.
type Value[T any] struct {
	once      sync.Once
	fn        func() (T, error)
	val       T
	err       error
	evaluated atomic.Bool
}

// New returns a Value that calls fn on first access.
func New[T any](fn func() (T, error)) *Value[T] {
	return &Value[T]{fn: fn}
}

// Ready returns a Value that already holds v.
func Ready[T any](v T) *Value[T] {
	lv := &Value[T]{val: v}
	lv.once.Do(func() {})
	lv.evaluated.Store(true)
	return lv
}

// Get evaluates the function if it has not run yet and returns its result.
func (v *Value[T]) Get() (T, error) {
	v.once.Do(func() {
		v.val, v.err = v.fn()
		v.fn = nil
		v.evaluated.Store(true)
	})
	return v.val, v.err
}

// Evaluated reports whether the value has been computed.
func (v *Value[T]) Evaluated() bool {
	return v.evaluated.Load()
}
