package loop

import (
	"context"
	"time"

	"github.com/psantana5/workloop/pkg/clock"
	"github.com/psantana5/workloop/pkg/logging"
	"github.com/psantana5/workloop/pkg/signals"
)

// Exit codes returned by Run.
const (
	// ExitOK is a clean stop: limit reached, no more work in batch
	// mode, or a graceful worker-mode shutdown.
	ExitOK = 0
	// ExitMemoryPressure is returned when the memory guard trips in
	// batch mode. Worker mode deliberately exits ExitOK on the same
	// condition: a worker runs under a supervisor that restarts it,
	// so self-termination there is an ordinary clean stop.
	ExitMemoryPressure = 100
	// exitSignalBase follows the shell convention of 128+N for a
	// process stopped by signal N.
	exitSignalBase = 128
)

// Processor is the unit-of-work capability the loop drives. ProcessOne
// attempts a single job: true means a job was found and processed,
// false means nothing to do right now. A returned error is an
// unrecoverable failure; the loop logs it and propagates it unchanged.
type Processor interface {
	ProcessOne(ctx context.Context) (bool, error)
}

// ProcessorFunc adapts a plain function to the Processor interface
type ProcessorFunc func(ctx context.Context) (bool, error)

func (f ProcessorFunc) ProcessOne(ctx context.Context) (bool, error) {
	return f(ctx)
}

// MemoryChecker reports whether memory consumption has crossed the
// safety threshold. See memguard.Guard.
type MemoryChecker interface {
	Check() bool
}

// Observer receives loop lifecycle events for metrics collection
type Observer interface {
	// LoopIteration fires once per iteration, before the job runs.
	LoopIteration()
	// JobProcessed fires after a job reported work done.
	JobProcessed()
	// LoopSleep fires before an inter-poll sleep in worker mode.
	LoopSleep()
}

// Config is the immutable loop policy, built once from option values.
type Config struct {
	// Limit caps the number of processed jobs; 0 means unbounded.
	Limit int
	// Sleep is the pause between empty polls in worker mode.
	Sleep time.Duration
	// Worker selects daemon mode: sleep and retry on no-work instead
	// of exiting.
	Worker bool
}

// Loop drives a Processor according to a Config.
type Loop struct {
	cfg      Config
	proc     Processor
	log      *logging.Logger
	signals  signals.Source
	memory   MemoryChecker
	clock    clock.Clock
	observer Observer
}

// Option configures optional loop collaborators
type Option func(*Loop)

// WithSignals attaches a deferred signal source. Without one the loop
// runs with no graceful-shutdown support.
func WithSignals(src signals.Source) Option {
	return func(l *Loop) { l.signals = src }
}

// WithMemoryChecker attaches a memory pressure check
func WithMemoryChecker(mc MemoryChecker) Option {
	return func(l *Loop) { l.memory = mc }
}

// WithClock attaches the shared time source advanced once per iteration
func WithClock(c clock.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithObserver attaches a metrics observer
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// New creates a worker loop
func New(cfg Config, proc Processor, log *logging.Logger, opts ...Option) *Loop {
	l := &Loop{
		cfg:  cfg,
		proc: proc,
		log:  log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the loop until it stops and returns the process exit
// code. The only error it returns is an unrecoverable job failure,
// propagated unchanged after a warning log; every other condition
// (signal, memory pressure, limit, no work, context cancellation)
// surfaces as an exit code and a log line.
//
// Per iteration: drain deferred signals, check memory pressure, stop if
// an exit is pending, advance the clock, run the job, then apply the
// decision table on its boolean result.
func (l *Loop) Run(ctx context.Context) (int, error) {
	state := &State{}

	for l.cfg.Limit == 0 || state.Processed < l.cfg.Limit {
		l.drainSignals(state)
		l.checkMemory(state)
		if state.ExitRequested() {
			break
		}

		if l.observer != nil {
			l.observer.LoopIteration()
		}
		if l.clock != nil {
			l.clock.Tick()
		}

		processed, err := l.proc.ProcessOne(ctx)
		if err != nil {
			l.log.Warn("job failed, stopping loop", logging.Fields{
				"processed_count": state.Processed,
				"limit":           l.cfg.Limit,
			})
			return ExitOK, err
		}

		if processed {
			state.Processed++
			if l.observer != nil {
				l.observer.JobProcessed()
			}
			// A stop request during the job is not expected with
			// deferred signals, but honor it if one arrived.
			if state.ExitRequested() {
				break
			}
			continue
		}

		// No work available.
		if !l.cfg.Worker {
			break
		}
		if state.ExitRequested() {
			break
		}
		if !l.sleep(ctx) {
			break
		}
	}

	code := state.ExitCode()
	l.log.Info("worker loop stopped", logging.Fields{
		"processed_count": state.Processed,
		"exit_code":       code,
	})
	return code, nil
}

// drainSignals delivers every deferred signal. The first one decides
// the exit code; a job that was running when the signal arrived has
// already completed by the time this is called.
func (l *Loop) drainSignals(state *State) {
	if l.signals == nil {
		return
	}
	l.signals.Drain(func(signal int) {
		l.log.Info("received stop signal", logging.Fields{"signal_number": signal})
		state.RequestExit(exitSignalBase + signal)
	})
}

func (l *Loop) checkMemory(state *State) {
	if l.memory == nil || !l.memory.Check() {
		return
	}
	if l.cfg.Worker {
		state.RequestExit(ExitOK)
	} else {
		state.RequestExit(ExitMemoryPressure)
	}
}

// sleep pauses between empty polls. Returns false when the context was
// cancelled, which stops the loop cleanly.
func (l *Loop) sleep(ctx context.Context) bool {
	if l.cfg.Sleep <= 0 {
		return ctx.Err() == nil
	}
	if l.observer != nil {
		l.observer.LoopSleep()
	}

	timer := time.NewTimer(l.cfg.Sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
