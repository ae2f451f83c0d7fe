package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Handler receives the notifications of one or more (address, channel) bindings.
//
// Decode converts a raw frame payload into the value later passed to
// HandleMessage. The address the frame arrived for is passed explicitly on
// every call, so one Handler can safely be bound to many addresses.
type Handler interface {
	Decode(payload []byte) (any, error)
	HandleMessage(ctx context.Context, address string, msg any) error
}

// AddressBinder is implemented by handlers that want to be told about every
// address they are bound to. BindAddress is called once per binding, when
// Subscribe creates it. The router never relies on it.
type AddressBinder interface {
	BindAddress(address string)
}

var errInvalidUTF8 = errors.New("payload is not valid UTF-8")

type jsonHandler[T any] struct {
	fn func(ctx context.Context, address string, msg T) error
}

// JSONHandler returns a Handler that unmarshals every payload into a T before
// calling fn.
func JSONHandler[T any](fn func(ctx context.Context, address string, msg T) error) Handler {
	return jsonHandler[T]{fn: fn}
}

func (h jsonHandler[T]) Decode(payload []byte) (any, error) {
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (h jsonHandler[T]) HandleMessage(ctx context.Context, address string, msg any) error {
	v, ok := msg.(T)
	if !ok {
		return fmt.Errorf("%w: unexpected message type %T", ErrDecode, msg)
	}
	return h.fn(ctx, address, v)
}

// TextHandler returns a Handler that passes every payload to fn as a string.
// Payloads that are not valid UTF-8 fail to decode.
func TextHandler(fn func(ctx context.Context, address string, msg string) error) Handler {
	return textHandler(fn)
}

type textHandler func(ctx context.Context, address string, msg string) error

func (h textHandler) Decode(payload []byte) (any, error) {
	if !utf8.Valid(payload) {
		return nil, errInvalidUTF8
	}
	return string(payload), nil
}

func (h textHandler) HandleMessage(ctx context.Context, address string, msg any) error {
	s, ok := msg.(string)
	if !ok {
		return fmt.Errorf("%w: unexpected message type %T", ErrDecode, msg)
	}
	return h(ctx, address, s)
}
