// Package daemon detaches gamewatch from its terminal and guards single
// instances with a PID file.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// EnvChild marks a process started by Detach.
const EnvChild = "GAMEWATCH_DAEMON_CHILD"

// IsChild reports whether this process was started by Detach.
func IsChild() bool {
	return os.Getenv(EnvChild) == "1"
}

// Acquire writes the current PID to path. It fails if the PID recorded
// there belongs to a live process; stale files are replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("daemon: create pid directory: %w", err)
	}

	if pid, err := Read(path); err == nil {
		if pid != os.Getpid() && Alive(pid) {
			return fmt.Errorf("daemon: already running with PID %d", pid)
		}
		_ = os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file.
func Release(path string) error {
	return os.Remove(path)
}

// Read returns the PID stored in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// Alive reports whether a process with pid exists. Signal 0 checks for
// existence without delivering anything; EPERM still means alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
