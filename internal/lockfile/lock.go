// Package lockfile keeps two sentrylab pollers from sharing one state file.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLocked is matched by errors.Is when another process holds the lock.
var ErrLocked = errors.New("state lock already held by another process")

// LockInfo is written into the lock file by its holder.
type LockInfo struct {
	PID       int       `json:"pid"`
	StatePath string    `json:"state_path"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// HeldError reports who holds the lock, when the lock file says.
type HeldError struct {
	Path   string
	Holder *LockInfo
}

func (e *HeldError) Error() string {
	if e.Holder == nil || e.Holder.PID == 0 {
		return fmt.Sprintf("%s: %v", e.Path, ErrLocked)
	}
	return fmt.Sprintf("%s: held by pid %d since %s", e.Path, e.Holder.PID,
		e.Holder.StartedAt.Format(time.RFC3339))
}

func (e *HeldError) Is(target error) bool { return target == ErrLocked }

// Lock is an exclusive advisory lock on a state file's companion lock file.
type Lock struct {
	f    *os.File
	path string
}

// PathFor returns the lock file guarding statePath.
func PathFor(statePath string) string {
	return statePath + ".lock"
}

// Acquire takes the lock for statePath without blocking and records info in
// the lock file. A lock held elsewhere yields a *HeldError.
func Acquire(statePath string, info LockInfo) (*Lock, error) {
	path := PathFor(statePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- derived from configured state path
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLocked) {
			holder, _ := ReadLockInfo(statePath)
			return nil, &HeldError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StatePath == "" {
		info.StatePath = statePath
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	if err := writeInfo(f, info); err != nil {
		_ = flockUnlock(f)
		_ = f.Close()
		return nil, fmt.Errorf("write lock info: %w", err)
	}
	return &Lock{f: f, path: path}, nil
}

func writeInfo(f *os.File, info LockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return err
	}
	return f.Sync()
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and closes the lock file. The file itself is left in
// place; a later Acquire reuses it.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := flockUnlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// ReadLockInfo reads the holder details from the lock file for statePath.
// A file holding only a PID is accepted.
func ReadLockInfo(statePath string) (*LockInfo, error) {
	data, err := os.ReadFile(PathFor(statePath)) // #nosec G304 -- derived from configured state path
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err == nil {
		return &info, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &LockInfo{PID: pid}, nil
}

// Held reports whether some process currently holds the lock for statePath,
// and who, by probing the lock without keeping it.
func Held(statePath string) (bool, *LockInfo) {
	f, err := os.OpenFile(PathFor(statePath), os.O_RDWR, 0) // #nosec G304 -- derived from configured state path
	if err != nil {
		return false, nil
	}
	defer f.Close()
	if err := flockExclusive(f); err != nil {
		info, _ := ReadLockInfo(statePath)
		return true, info
	}
	_ = flockUnlock(f)
	return false, nil
}
