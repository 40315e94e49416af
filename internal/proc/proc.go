// Package proc implements PID-file process control for the agent commands:
// --status and --stop work against a per-agent PID file under the user
// cache directory.
package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// pidDir returns the PID file directory, creating it if needed.
func pidDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("proc: cache dir: %w", err)
	}
	dir := filepath.Join(cache, "ai-assistant")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("proc: mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// PIDFile returns the PID file path for a named agent.
func PIDFile(name string) (string, error) {
	dir, err := pidDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".pid"), nil
}

// WritePID records the current process as the running instance of name.
func WritePID(name string) error {
	path, err := PIDFile(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPID returns the recorded PID for name, or 0 if no live instance
// exists. A stale PID file (process gone) is removed on the way.
func ReadPID(name string) (int, error) {
	path, err := PIDFile(name)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || !alive(pid) {
		_ = os.Remove(path)
		return 0, nil
	}
	return pid, nil
}

// alive probes a PID with signal 0.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// IsRunning reports whether a live instance of name exists.
func IsRunning(name string) bool {
	pid, err := ReadPID(name)
	return err == nil && pid != 0
}

// Kill sends SIGTERM to the running instance of name. Returns false when no
// instance is running.
func Kill(name string) (bool, error) {
	pid, err := ReadPID(name)
	if err != nil || pid == 0 {
		return false, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = Remove(name)
			return false, nil
		}
		return false, err
	}
	_ = Remove(name)
	return true, nil
}

// Remove deletes the PID file for name.
func Remove(name string) error {
	path, err := PIDFile(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
