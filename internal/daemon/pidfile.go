package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const pidFilename = "horoscopo.pid"

// WritePID records the current process ID in dataDir. The file is written
// beside its final name and renamed into place so readers never see a
// partial PID.
func WritePID(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("pidfile: create %s: %w", dataDir, err)
	}
	path := pidPath(dataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("pidfile: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pidfile: rename into %s: %w", path, err)
	}
	return nil
}

// ReadPID returns the PID stored in dataDir.
func ReadPID(dataDir string) (int, error) {
	path := pidPath(dataDir)
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("pidfile: %s holds %q: %w", path, raw, err)
	}
	return pid, nil
}

// RemovePID deletes the PID file; a missing file is not an error.
func RemovePID(dataDir string) error {
	if err := os.Remove(pidPath(dataDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pidfile: %w", err)
	}
	return nil
}

// ClaimPID takes ownership of the PID file. It fails if the file names a
// different process that is still alive; a stale or unreadable file is
// overwritten.
func ClaimPID(dataDir string) error {
	pid, err := ReadPID(dataDir)
	if err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("horoscopo is already running (PID %d, file %s)", pid, pidPath(dataDir))
	}
	return WritePID(dataDir)
}

// IsRunning reports whether the PID file names a live process.
func IsRunning(dataDir string) bool {
	pid, err := ReadPID(dataDir)
	return err == nil && processAlive(pid)
}

// processAlive sends signal 0 to pid.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to someone else.
	return err == nil || errors.Is(err, syscall.EPERM)
}

func pidPath(dataDir string) string {
	return filepath.Join(dataDir, pidFilename)
}
