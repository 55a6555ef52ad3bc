// SPDX-License-Identifier: AGPL-3.0-only
package singleton

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "vectors.db")

	// Acquire the lock.
	lock, acquired, err := TryAcquire(storePath)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected acquired=true")
	}
	if lock == nil {
		t.Fatal("expected non-nil lock")
	}

	// Release the lock.
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Should be re-acquirable.
	lock2, acquired2, err := TryAcquire(storePath)
	if err != nil {
		t.Fatalf("re-TryAcquire: %v", err)
	}
	if !acquired2 {
		t.Fatal("expected acquired=true on re-acquire")
	}
	defer func() { _ = lock2.Release() }()
}

// TestConcurrentHolderBlocksAcquire verifies that when one process holds the
// lock, another process trying TryAcquire gets acquired=false.
func TestConcurrentHolderBlocksAcquire(t *testing.T) {
	if os.Getenv("SINGLETON_HOLD_LOCK") == "1" {
		// Subprocess: acquire the lock and block until stdin is closed.
		storePath := os.Getenv("SINGLETON_STORE_PATH")
		lock, acquired, err := TryAcquire(storePath)
		if err != nil || !acquired {
			os.Exit(2)
		}
		defer func() { _ = lock.Release() }()

		// Signal readiness by writing to a marker file.
		_ = os.WriteFile(storePath+".ready", []byte("1"), 0o600)

		// Block until stdin is closed (parent will close it to signal exit).
		buf := make([]byte, 1)
		_, _ = os.Stdin.Read(buf)
		return
	}

	dir := t.TempDir()
	storePath := filepath.Join(dir, "vectors.db")

	// Start a subprocess that holds the lock.
	cmd := exec.Command(os.Args[0], "-test.run=^TestConcurrentHolderBlocksAcquire$")
	cmd.Env = append(os.Environ(),
		"SINGLETON_HOLD_LOCK=1",
		"SINGLETON_STORE_PATH="+storePath,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}
	defer func() {
		_ = stdin.Close()
		_ = cmd.Wait()
	}()

	// Wait for the subprocess to be ready.
	waitForFile(t, storePath+".ready")

	// TryAcquire from this process while the subprocess holds the lock.
	lock, acquired, err := TryAcquire(storePath)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if acquired {
		_ = lock.Release()
		t.Fatal("expected acquired=false when another process holds the lock")
	}
	if lock != nil {
		t.Fatal("expected nil lock when not acquired")
	}
}

// TestTryAcquireCreatesDirectory verifies that TryAcquire creates parent
// directories if they don't exist (first-run scenario).
func TestTryAcquireCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nonexistent", "subdir")
	storePath := filepath.Join(dir, "vectors.db")

	lock, acquired, err := TryAcquire(storePath)
	if err != nil {
		t.Fatalf("TryAcquire with non-existent dir: %v", err)
	}
	if !acquired {
		t.Fatal("expected acquired=true")
	}
	defer func() { _ = lock.Release() }()
}

// TestStaleLock verifies that when a lock holder is killed without cleanup
// (simulating a crash), a new TryAcquire succeeds because the OS releases
// the flock.
func TestStaleLock(t *testing.T) {
	if os.Getenv("SINGLETON_HOLD_LOCK") == "1" {
		storePath := os.Getenv("SINGLETON_STORE_PATH")
		lock, _, err := TryAcquire(storePath)
		if err != nil {
			os.Exit(2)
		}
		_ = lock // intentionally not releasing

		_ = os.WriteFile(storePath+".ready", []byte("1"), 0o600)

		// Block forever. We expect to be SIGKILL'd.
		select {}
	}

	dir := t.TempDir()
	storePath := filepath.Join(dir, "vectors.db")

	// Start a subprocess that holds the lock.
	cmd := exec.Command(os.Args[0], "-test.run=^TestStaleLock$")
	cmd.Env = append(os.Environ(),
		"SINGLETON_HOLD_LOCK=1",
		"SINGLETON_STORE_PATH="+storePath,
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}

	// Wait for ready.
	waitForFile(t, storePath+".ready")

	// SIGKILL the subprocess, simulating a crash. The OS releases the flock.
	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("kill subprocess: %v", err)
	}
	_ = cmd.Wait()

	// TryAcquire should succeed (stale lock released by OS).
	lock, acquired, err := TryAcquire(storePath)
	if err != nil {
		t.Fatalf("TryAcquire after crash: %v", err)
	}
	if !acquired {
		t.Fatal("expected acquired=true after crash")
	}
	defer func() { _ = lock.Release() }()
}

// waitForFile polls until path exists or 10 seconds elapse.
func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", path)
		default:
			time.Sleep(50 * time.Millisecond)
		}
	}
}
