// Package shutdown derives contexts that are cancelled when an operator asks
// the process to stop.
package shutdown

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// DefaultWord is the console input that requests a shutdown.
const DefaultWord = "exit"

// OnSignal returns a context cancelled on SIGINT or SIGTERM. Call stop to
// release the signal registration.
func OnSignal(ctx context.Context) (_ context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// OnConsoleInput returns a context cancelled when a line equal to word is read
// from r, or when r ends. Lines are compared case-insensitively after
// trimming spaces. An empty word means DefaultWord.
//
// The goroutine reading r stays blocked in Read until r yields a line or ends;
// cancelling ctx does not interrupt it.
func OnConsoleInput(ctx context.Context, r io.Reader, word string) (context.Context, context.CancelFunc) {
	if word == "" {
		word = DefaultWord
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if strings.EqualFold(strings.TrimSpace(scanner.Text()), word) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return ctx, cancel
}
