package devices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WaitFor(context.Background(), path, 0); err != nil {
		t.Errorf("WaitFor() = %v, want nil", err)
	}
}

func TestWaitForMissingWithoutTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	err := WaitFor(context.Background(), path, 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("WaitFor() = %v, want os.ErrNotExist", err)
	}
}

func TestWaitForAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video20")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "video21"), nil, 0o600)
		_ = os.WriteFile(path, nil, 0o600)
	}()

	start := time.Now()
	if err := WaitFor(context.Background(), path, 5*time.Second); err != nil {
		t.Fatalf("WaitFor() = %v, want nil", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("WaitFor took %v, should return as soon as the node exists", elapsed)
	}
}

func TestWaitForTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	err := WaitFor(context.Background(), path, 50*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("WaitFor() = %v, want ErrWaitTimeout", err)
	}
}

func TestWaitForCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := WaitFor(ctx, path, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitFor() = %v, want context.Canceled", err)
	}
}

func TestWaitForMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "video0")
	if err := WaitFor(context.Background(), path, time.Second); err == nil {
		t.Error("WaitFor() should fail when the parent directory does not exist")
	}
}
