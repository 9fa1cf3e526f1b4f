// Package signals defers termination-class signals so a worker loop can
// observe them at iteration boundaries instead of dying mid-job. The OS
// delivery is trapped into a queue; nothing happens until the loop calls
// Drain.
package signals

import (
	"os"
	"os/signal"
	"syscall"
)

// Source hands queued signal numbers to a callback. The worker loop
// drains it once per iteration; a nil Source disables graceful shutdown.
type Source interface {
	// Drain synchronously delivers every queued signal, in arrival
	// order, then returns. It never blocks waiting for a signal.
	Drain(fn func(signal int))
}

// Notifier queues SIGHUP, SIGINT and SIGTERM instead of letting the
// runtime terminate the process. A job that is already running is never
// interrupted; the signal is observed at the next Drain.
type Notifier struct {
	ch chan os.Signal
}

// NewNotifier registers the termination signal handlers.
// The channel buffer absorbs repeated signals (e.g. a mashed Ctrl+C)
// between drains; overflow beyond the buffer is dropped, not fatal.
func NewNotifier() *Notifier {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return &Notifier{ch: ch}
}

func (n *Notifier) Drain(fn func(signal int)) {
	for {
		select {
		case sig := <-n.ch:
			fn(Number(sig))
		default:
			return
		}
	}
}

// Stop unregisters the handlers and restores default signal behavior
func (n *Notifier) Stop() {
	signal.Stop(n.ch)
}

// Number extracts the platform signal number for the 128+N exit code
// convention. Signals that carry no number report 0.
func Number(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 0
}

// Nop is a Source for hosts without signal handling support. Draining
// it is a no-op, so the loop runs without graceful shutdown.
type Nop struct{}

func (Nop) Drain(fn func(signal int)) {}
