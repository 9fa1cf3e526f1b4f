package loop

// State is the mutable loop bookkeeping, owned by a single Run call and
// threaded through each iteration step. Nothing else mutates it, so no
// locking is needed.
type State struct {
	// Processed counts jobs that reported work done.
	Processed int

	exitCode int
	exitSet  bool
}

// RequestExit records a pending exit code. The first request wins;
// later requests before the loop reaches an exit checkpoint are ignored.
func (s *State) RequestExit(code int) {
	if s.exitSet {
		return
	}
	s.exitCode = code
	s.exitSet = true
}

// ExitRequested reports whether a stop has been requested
func (s *State) ExitRequested() bool {
	return s.exitSet
}

// ExitCode returns the pending exit code, or ExitOK when none was requested
func (s *State) ExitCode() int {
	if !s.exitSet {
		return ExitOK
	}
	return s.exitCode
}
