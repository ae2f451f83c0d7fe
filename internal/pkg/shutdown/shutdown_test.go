package shutdown

import (
	"context"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnConsoleInput(t *testing.T) {
	t.Run("should cancel when the word is typed", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()

		ctx, cancel := OnConsoleInput(testContext(t), r, "quit")
		defer cancel()

		_, err := io.WriteString(w, "hello\n")
		require.NoError(t, err)
		assert.NoError(t, ctx.Err())

		_, err = io.WriteString(w, "  QUIT \n")
		require.NoError(t, err)

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
	})

	t.Run("should use the default word", func(t *testing.T) {
		ctx, cancel := OnConsoleInput(testContext(t), strings.NewReader("exit\nmore\n"), "")
		defer cancel()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
	})

	t.Run("should cancel when the input ends", func(t *testing.T) {
		ctx, cancel := OnConsoleInput(testContext(t), strings.NewReader(""), "quit")
		defer cancel()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
	})

	t.Run("should follow the parent context", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()

		parent, cancelParent := context.WithCancel(testContext(t))
		ctx, cancel := OnConsoleInput(parent, r, "quit")
		defer cancel()

		cancelParent()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
	})
}

func TestOnSignal(t *testing.T) {
	t.Run("should cancel on SIGTERM", func(t *testing.T) {
		ctx, stop := OnSignal(testContext(t))
		defer stop()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
	})
}
