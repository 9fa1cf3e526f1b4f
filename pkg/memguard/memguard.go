// Package memguard watches the worker's own memory footprint against an
// operational ceiling so the loop can stop itself before the kernel OOM
// killer does.
package memguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/psantana5/workloop/pkg/logging"
)

// threshold is the fraction of the ceiling at which Check trips.
const threshold = 0.8

// UsageFunc reports the process memory usage in bytes
type UsageFunc func() (uint64, error)

// Guard checks process memory usage against a configured ceiling.
// A ceiling <= 0 disables the guard.
type Guard struct {
	limit int64
	usage UsageFunc
	log   *logging.Logger
}

// New creates a guard for the current process. limit is the ceiling in
// bytes; zero or negative means no ceiling.
func New(limit int64, log *logging.Logger) *Guard {
	return &Guard{
		limit: limit,
		usage: ProcessRSS,
		log:   log,
	}
}

// NewWithUsage creates a guard with a custom usage sampler
func NewWithUsage(limit int64, usage UsageFunc, log *logging.Logger) *Guard {
	return &Guard{
		limit: limit,
		usage: usage,
		log:   log,
	}
}

// Limit returns the configured ceiling in bytes (<= 0 means none)
func (g *Guard) Limit() int64 {
	return g.limit
}

// Check reports whether memory usage has crossed the safety threshold.
// A sampling failure is treated as "no pressure": killing a healthy
// worker over an unreadable proc entry is worse than a late trip.
func (g *Guard) Check() bool {
	if g.limit <= 0 {
		return false
	}

	used, err := g.usage()
	if err != nil {
		g.log.Debug("memory usage sampling failed", logging.Fields{"error": err.Error()})
		return false
	}

	if float64(used) > threshold*float64(g.limit) {
		g.log.Error("memory usage crossed safety threshold", logging.Fields{
			"current_memory_usage": used,
			"current_memory_limit": g.limit,
		})
		return true
	}
	return false
}

// ProcessRSS samples the resident set size of the current process.
// It is the default UsageFunc and is shared with the metrics collector.
func ProcessRSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("failed to open own process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}

// ParseByteSize parses a memory size string: a plain byte count or a
// count suffixed with k, m, g or t (case-insensitive), interpreted as a
// binary order of magnitude (left shift by 10, 20, 30 or 40 bits).
// An empty string parses to 0. Negative counts parse unchanged; the
// guard treats them as "no limit".
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	shift := uint(0)
	switch s[len(s)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	case 't', 'T':
		shift = 40
	}
	if shift != 0 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return n << shift, nil
}
