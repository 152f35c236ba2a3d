// Package dirlock provides an advisory lock on a working directory.
//
// A Lock has two layers. An in-process registry keyed by the canonical
// directory path makes two controllers in the same process conflict, and an
// flock(2) lock file in the system temp directory makes two processes
// conflict. The lock file lives outside the working directory so builds and
// the agent never see it.
//
// The OS releases the flock if the process dies, so a crashed run never
// leaves the directory locked.
package dirlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrLockHeld is returned when another run holds the directory.
type ErrLockHeld struct {
	Dir      string
	LockPath string
	// HolderPID is the PID recorded by the holder, or 0 if unknown.
	HolderPID int
}

func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("working directory %s is in use by another run (pid %d)", e.Dir, e.HolderPID)
	}
	return fmt.Sprintf("working directory %s is in use by another run", e.Dir)
}

var (
	registryMu sync.Mutex
	registry   = map[string]bool{}
)

// Lock is a held directory lock. Release it exactly once; extra calls are no-ops.
type Lock struct {
	dir  string
	file *os.File
	once sync.Once
	err  error
}

// Dir returns the canonical path of the locked directory.
func (l *Lock) Dir() string {
	return l.dir
}

// Canonical returns the absolute, symlink-resolved form of dir.
// A directory that does not exist yet is resolved as far as possible.
func Canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// LockPath returns the lock file used for the canonical directory dir.
// lockDir defaults to os.TempDir().
func LockPath(lockDir, dir string) string {
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(dir))
	return filepath.Join(lockDir, "forge-"+hex.EncodeToString(sum[:8])+".lock")
}

// Acquire locks dir without blocking. lockDir holds the lock file and
// defaults to os.TempDir(). Contention returns *ErrLockHeld.
func Acquire(dir, lockDir string) (*Lock, error) {
	canonical, err := Canonical(dir)
	if err != nil {
		return nil, err
	}
	lockPath := LockPath(lockDir, canonical)

	registryMu.Lock()
	if registry[canonical] {
		registryMu.Unlock()
		return nil, &ErrLockHeld{Dir: canonical, LockPath: lockPath, HolderPID: os.Getpid()}
	}
	registry[canonical] = true
	registryMu.Unlock()

	file, err := lockFile(lockPath)
	if err != nil {
		unregister(canonical)
		var held *ErrLockHeld
		if errors.As(err, &held) {
			held.Dir = canonical
		}
		return nil, err
	}

	if err := writePID(file); err != nil {
		_ = unlockFile(file)
		unregister(canonical)
		return nil, err
	}

	return &Lock{dir: canonical, file: file}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		// Truncate before unlocking so a waiting run never reads a stale PID.
		if l.file != nil {
			_ = l.file.Truncate(0)
			l.err = unlockFile(l.file)
		}
		unregister(l.dir)
	})
	return l.err
}

func unregister(dir string) {
	registryMu.Lock()
	delete(registry, dir)
	registryMu.Unlock()
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// readPID returns the PID recorded in path, or 0.
func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
