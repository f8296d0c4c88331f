// SPDX-License-Identifier: MIT

// Package shutdown turns OS signals and an interactive quit key into
// cooperative context cancellation for the pipeline.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/videosentinel/videosentinel/internal/log"
)

// DefaultKey is the interactive quit key.
const DefaultKey = 'q'

// Context derives a context that is cancelled on SIGINT/SIGTERM, and, when
// stdin is a terminal, also when key is pressed. The returned stop function
// releases the signal registration and restores the terminal.
//
// Workers poll the context at loop boundaries only; a cancel never interrupts
// an in-flight copy or encode.
func Context(parent context.Context, key byte) (context.Context, func()) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	restore := listenForKey(ctx, key, cancel)

	stop := func() {
		restore()
		cancel()
	}
	return ctx, stop
}

// listenForKey starts the raw-mode stdin reader when stdin is an interactive
// terminal. Returns a function restoring the terminal state. The reader
// goroutine blocks in Read and cannot be joined; it exits with the process,
// which is safe because it only ever calls cancel.
func listenForKey(ctx context.Context, key byte, cancel context.CancelFunc) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		logger := log.WithComponent("shutdown")
		logger.Debug().Err(err).Msg("raw mode unavailable, quit key disabled")
		return func() {}
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && matchesKey(buf[0], key) {
				logger := log.WithComponent("shutdown")
				logger.Info().Msg("shutdown requested, finishing current file")
				cancel()
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return func() { _ = term.Restore(fd, oldState) }
}

// matchesKey compares a pressed byte against the quit key, ignoring case.
func matchesKey(pressed, key byte) bool {
	lower := func(b byte) byte {
		if b >= 'A' && b <= 'Z' {
			return b + ('a' - 'A')
		}
		return b
	}
	return lower(pressed) == lower(key)
}
