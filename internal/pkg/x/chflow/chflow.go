// Package chflow holds small channel helpers that give up as soon as their
// context is done.
package chflow

import "context"

// Receive returns the next value of ch. ok is false when ch is closed or ctx
// is done first.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// Send delivers data on ch and reports whether it did before ctx was done.
func Send[T any](ctx context.Context, ch chan<- T, data T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- data:
		return true
	}
}

// Drain calls fn for every value received from ch until ch is closed or ctx
// is done. Values are handled one at a time, in order.
func Drain[T any](ctx context.Context, ch <-chan T, fn func(T)) {
	for {
		data, ok := Receive(ctx, ch)
		if !ok {
			return
		}
		fn(data)
	}
}
