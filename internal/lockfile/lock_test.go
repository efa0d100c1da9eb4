package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "processed-issues.json")

	lock, err := Acquire(statePath, LockInfo{Version: "test"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if lock.Path() != statePath+".lock" {
		t.Errorf("Path() = %q", lock.Path())
	}

	info, err := ReadLockInfo(statePath)
	if err != nil {
		t.Fatalf("ReadLockInfo() error = %v", err)
	}
	if info.PID != os.Getpid() || info.StatePath != statePath || info.Version != "test" {
		t.Errorf("info = %+v", info)
	}
	if info.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	again, err := Acquire(statePath, LockInfo{})
	if err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}
	_ = again.Release()
}

func TestAcquireWhileHeld(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	first, err := Acquire(statePath, LockInfo{})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	_, err = Acquire(statePath, LockInfo{})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrLocked", err)
	}
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("error = %T, want *HeldError", err)
	}
	if held.Holder == nil || held.Holder.PID != os.Getpid() {
		t.Errorf("Holder = %+v, want this process", held.Holder)
	}

	ok, info := Held(statePath)
	if !ok || info == nil || info.PID != os.Getpid() {
		t.Errorf("Held() = %v, %+v", ok, info)
	}
}

func TestHeld_NotHeld(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if ok, _ := Held(statePath); ok {
		t.Error("Held() = true with no lock file")
	}

	lock, err := Acquire(statePath, LockInfo{})
	if err != nil {
		t.Fatal(err)
	}
	_ = lock.Release()
	if ok, _ := Held(statePath); ok {
		t.Error("Held() = true after Release")
	}
}

func TestReadLockInfo(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "state.json")

	t.Run("file not found", func(t *testing.T) {
		if _, err := ReadLockInfo(statePath); err == nil {
			t.Error("expected error for missing lock file")
		}
	})

	t.Run("plain PID", func(t *testing.T) {
		if err := os.WriteFile(PathFor(statePath), []byte("98765\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		info, err := ReadLockInfo(statePath)
		if err != nil {
			t.Fatalf("ReadLockInfo failed: %v", err)
		}
		if info.PID != 98765 {
			t.Errorf("PID = %d, want 98765", info.PID)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		if err := os.WriteFile(PathFor(statePath), []byte("invalid json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadLockInfo(statePath); err == nil {
			t.Error("expected error for invalid format")
		}
	})
}

func TestHeldErrorMessage(t *testing.T) {
	err := &HeldError{Path: "/tmp/x.lock"}
	if err.Error() != "/tmp/x.lock: state lock already held by another process" {
		t.Errorf("Error() = %q", err.Error())
	}
}
