// Package daemon manages the PID-file singleton contract: at most one
// visitwatch process per PID path, stoppable by signal.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Acquire claims the PID file for the current process. The create is
// exclusive, so two racing invocations cannot both claim it. It fails
// when another live process already holds the file; a file left behind
// by a dead process, or one that never held a PID, is reclaimed.
func Acquire(path string) error {
	err := writePIDFile(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrExist) {
		return err
	}
	if pid, rerr := ReadPID(path); rerr == nil && processAlive(pid) {
		return fmt.Errorf("already running with pid %d", pid)
	}
	os.Remove(path) // stale or unreadable
	return writePIDFile(path)
}

func writePIDFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
	}
	return werr
}

// Release removes the PID file if this process owns it.
func Release(path string) {
	if pid, err := ReadPID(path); err == nil && pid == os.Getpid() {
		os.Remove(path)
	}
}

func ReadPID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// Stop sends SIGTERM to the process named in the PID file.
func Stop(path string) error {
	pid, err := ReadPID(path)
	if err != nil {
		return err
	}
	if !processAlive(pid) {
		return fmt.Errorf("pid %d is not running", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// Running reports whether the PID file names a live process.
func Running(path string) (int, bool) {
	pid, err := ReadPID(path)
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// processAlive probes a PID with signal 0. EPERM still means alive, just
// not ours.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
