// Package spool implements the workloop binary's built-in job source: a
// drop directory of job files, processed oldest-first by an external
// command. Processed files move to done/, files whose command exits
// nonzero move to failed/ for inspection.
package spool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/psantana5/workloop/pkg/logging"
)

const (
	doneDirName   = "done"
	failedDirName = "failed"
)

// Processor picks one file per call and runs the configured command on
// it. It implements the worker loop's Processor capability.
type Processor struct {
	dir       string
	doneDir   string
	failedDir string
	command   []string
	log       *logging.Logger
}

// New creates a spool processor rooted at dir. command is the argv of
// the per-file command; the file path is appended as its last argument.
func New(dir string, command []string, log *logging.Logger) (*Processor, error) {
	if len(command) == 0 {
		return nil, errors.New("spool: no command configured")
	}

	p := &Processor{
		dir:       dir,
		doneDir:   filepath.Join(dir, doneDirName),
		failedDir: filepath.Join(dir, failedDirName),
		command:   command,
		log:       log,
	}
	for _, d := range []string{dir, p.doneDir, p.failedDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("spool: failed to create %s: %w", d, err)
		}
	}
	return p, nil
}

// ProcessOne runs the command on the oldest spooled file. It reports
// false when the spool is empty. Spool I/O failures and commands that
// cannot be started are unrecoverable; a command that starts but exits
// nonzero only quarantines its file.
func (p *Processor) ProcessOne(ctx context.Context) (bool, error) {
	path, ok, err := p.next()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	args := append(append([]string(nil), p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false, fmt.Errorf("spool: failed to run %s: %w", p.command[0], err)
		}
		p.log.Warn("job command failed, quarantining file", logging.Fields{
			"file":      filepath.Base(path),
			"exit_code": exitErr.ExitCode(),
			"output":    strings.TrimSpace(string(output)),
		})
		return true, p.move(path, p.failedDir)
	}

	p.log.Debug("job file processed", logging.Fields{"file": filepath.Base(path)})
	return true, p.move(path, p.doneDir)
}

// next returns the oldest regular file in the spool directory
func (p *Processor) next() (string, bool, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return "", false, fmt.Errorf("spool: failed to read %s: %w", p.dir, err)
	}

	var (
		oldest     string
		oldestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Raced with an external move; skip it.
			continue
		}
		if oldest == "" || info.ModTime().Before(oldestTime) {
			oldest = entry.Name()
			oldestTime = info.ModTime()
		}
	}
	if oldest == "" {
		return "", false, nil
	}
	return filepath.Join(p.dir, oldest), true, nil
}

func (p *Processor) move(path, dest string) error {
	target := filepath.Join(dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("spool: failed to move %s to %s: %w", path, dest, err)
	}
	return nil
}
