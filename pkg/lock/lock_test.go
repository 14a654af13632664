package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestAcquireSimple(t *testing.T) {
	target := filepath.Join(t.TempDir(), "0704.0001")

	unlock, err := Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Failed to lock: %v", err)
	}

	if _, err := os.Stat(target + ".lock"); os.IsNotExist(err) {
		t.Errorf("Lock file not created")
	}

	if err := unlock(); err != nil {
		t.Errorf("Failed to unlock: %v", err)
	}

	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("Lock file should be gone")
	}
}

func deadPid() int {
	for i := 32000; i < 60000; i++ {
		proc, _ := os.FindProcess(i)
		if err := proc.Signal(syscall.Signal(0)); err == syscall.ESRCH {
			return i
		}
	}
	return 9999999
}

func TestAcquireStale(t *testing.T) {
	target := filepath.Join(t.TempDir(), "stale")
	lockFile := target + ".lock"

	content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), deadPid())
	if err := os.WriteFile(lockFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlock, err := Acquire(ctx, target)
	if err != nil {
		t.Fatalf("Failed to acquire lock over stale one: %v", err)
	}
	unlock()
}

func TestAcquireCorrupt(t *testing.T) {
	target := filepath.Join(t.TempDir(), "corrupt")
	if err := os.WriteFile(target+".lock", []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlock, err := Acquire(ctx, target)
	if err != nil {
		t.Fatalf("Failed to acquire lock over corrupt one: %v", err)
	}
	unlock()
}

func TestAcquireConcurrent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "concurrent")

	var wg sync.WaitGroup
	wg.Add(2)

	// First holder keeps the lock for a while.
	go func() {
		defer wg.Done()
		unlock, err := Acquire(context.Background(), target)
		if err != nil {
			t.Errorf("G1 failed to lock: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
		unlock()
	}()

	go func() {
		defer wg.Done()
		time.Sleep(100 * time.Millisecond)
		start := time.Now()
		unlock, err := Acquire(context.Background(), target)
		if err != nil {
			t.Errorf("G2 failed to lock: %v", err)
			return
		}
		if d := time.Since(start); d < 300*time.Millisecond {
			t.Errorf("G2 acquired lock too fast (%v), expected waiting for G1", d)
		}
		unlock()
	}()

	wg.Wait()
}

func TestAcquireCancelled(t *testing.T) {
	target := filepath.Join(t.TempDir(), "held")

	unlock, err := Acquire(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = Acquire(ctx, target)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while waiting, got %v", err)
	}
}

func TestAcquireExcludesHolders(t *testing.T) {
	target := filepath.Join(t.TempDir(), "contended")

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				unlock, err := Acquire(context.Background(), target)
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				if err := unlock(); err != nil {
					t.Errorf("unlock failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("%d acquisitions overlapped another holder", n)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestUnlockKeepsForeignLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "taken")
	lockFile := target + ".lock"

	unlock, err := Acquire(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}

	// Someone else replaced the lock while we held it.
	foreign := fmt.Sprintf("%s %d other-token", time.Now().Format(time.RFC3339), os.Getppid())
	if err := os.WriteFile(lockFile, []byte(foreign), 0644); err != nil {
		t.Fatal(err)
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	data, err := os.ReadFile(lockFile)
	if err != nil || string(data) != foreign {
		t.Errorf("foreign lock was touched: %q, %v", data, err)
	}
}

func TestAcquireOwnPidUnknownToken(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reused-pid")

	content := fmt.Sprintf("%s %d left-by-earlier-process", time.Now().Format(time.RFC3339), os.Getpid())
	if err := os.WriteFile(target+".lock", []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlock, err := Acquire(ctx, target)
	if err != nil {
		t.Fatalf("lock with our pid but no live owner should be taken over: %v", err)
	}
	unlock()
}
