// Package pidfile provides PID file management for daemon lifecycle.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Common errors
var (
	ErrNoPIDFile  = errors.New("no PID file found")
	ErrInvalidPID = errors.New("invalid PID in file")
)

const (
	// FileName is the PID file name inside the config directory.
	FileName = "askollama.pid"
	dirPerm  = 0755
	filePerm = 0644

	pollInterval = 100 * time.Millisecond
)

// File is a PID file at a fixed path.
type File struct {
	path string
}

// New returns the PID file inside dir.
func New(dir string) *File {
	return &File{path: Path(dir)}
}

// Path returns the PID file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Path returns the file's location.
func (f *File) Path() string {
	return f.path
}

// Write creates the PID file with the given process ID.
// Creates parent directories if needed.
func (f *File) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(f.path), dirPerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	content := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(f.path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	return nil
}

// Read reads the PID from the PID file.
// Returns ErrNoPIDFile if the file doesn't exist.
// Returns ErrInvalidPID if the file contains invalid data.
func (f *File) Read() (int, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoPIDFile
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, ErrInvalidPID
	}

	return pid, nil
}

// Remove deletes the PID file.
// Returns nil if the file doesn't exist.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if the process with the PID in the file is alive.
// If there's no PID file, returns (false, 0, nil).
// If the PID file is stale, returns (false, pid, nil).
func (f *File) IsRunning() (bool, int, error) {
	pid, err := f.Read()
	if err != nil {
		if errors.Is(err, ErrNoPIDFile) {
			return false, 0, nil
		}
		return false, 0, err
	}

	alive, err := Alive(pid)
	return alive, pid, err
}

// CleanStale removes the PID file if its process is not running.
// Returns true if a stale PID file was removed.
func (f *File) CleanStale() (bool, error) {
	running, pid, err := f.IsRunning()
	if err != nil {
		if errors.Is(err, ErrInvalidPID) {
			return true, f.Remove()
		}
		return false, err
	}
	if running || pid == 0 {
		return false, nil
	}

	if err := f.Remove(); err != nil {
		return false, err
	}
	return true, nil
}

// Alive reports whether a process with pid exists. Signal 0 performs the
// existence check without delivering anything.
func Alive(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	case errors.Is(err, unix.EPERM):
		// Exists but owned by someone else
		return true, nil
	default:
		return false, fmt.Errorf("check process: %w", err)
	}
}

// Terminate sends SIGTERM to pid and waits up to timeout for it to exit,
// then sends SIGKILL. It reports whether SIGKILL was needed.
func Terminate(pid int, timeout time.Duration) (bool, error) {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return false, nil
		}
		return false, fmt.Errorf("send SIGTERM: %w", err)
	}

	if WaitForExit(pid, timeout) {
		return false, nil
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return true, fmt.Errorf("send SIGKILL: %w", err)
	}
	// Wait a bit more for SIGKILL to take effect
	WaitForExit(pid, 2*time.Second)
	return true, nil
}

// WaitForExit polls until the process exits or timeout is reached.
func WaitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if alive, _ := Alive(pid); !alive {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}
