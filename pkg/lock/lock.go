// Package lock serialises work on a path across processes with a
// <path>.lock file holding the owner's PID and a per-acquisition token.
package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	pollBusy  = 200 * time.Millisecond
	pollRetry = 100 * time.Millisecond
)

// held records the tokens of locks owned by this process. A lock file with
// our PID but an unknown token was left by an earlier process that had the
// same PID.
var held sync.Map

// Acquire locks target by linking a fully written file to target+".lock".
// If the lock is held by a live process it waits until the lock is released
// or ctx is done. A lock left behind by a dead process is removed.
// The returned function releases the lock, unless someone else owns it by
// then.
func Acquire(ctx context.Context, target string) (func() error, error) {
	lockFile := target + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent dir for lock: %w", err)
	}

	token := uuid.NewString()
	content := []byte(fmt.Sprintf("%s %d %s", time.Now().Format(time.RFC3339), os.Getpid(), token))

	for {
		ok, err := create(lockFile, content)
		if err != nil {
			return nil, err
		}
		if ok {
			held.Store(token, true)
			return func() error {
				held.Delete(token)
				return removeIfUnchanged(lockFile, content)
			}, nil
		}

		wait := inspect(lockFile)
		if wait == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", lockFile, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// create writes content to a private temp file and hard links it into
// place, so the lock file never exists half written.
func create(lockFile string, content []byte) (bool, error) {
	tmp, err := os.CreateTemp(filepath.Dir(lockFile), filepath.Base(lockFile)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to write to lock file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to write to lock file: %w", err)
	}

	err = os.Link(tmp.Name(), lockFile)
	if err == nil {
		return true, nil
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to acquire lock: %w", err)
}

// inspect decides what to do about an existing lock file: retry at once
// (it was stale or vanished) or wait for the given duration.
func inspect(lockFile string) time.Duration {
	content, err := os.ReadFile(lockFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		return pollRetry
	}

	parts := strings.Fields(string(content))
	if len(parts) < 2 {
		slog.Debug("Removing corrupt lock", "path", lockFile)
		removeIfUnchanged(lockFile, content)
		return 0
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		slog.Debug("Removing corrupt lock", "path", lockFile)
		removeIfUnchanged(lockFile, content)
		return 0
	}

	if pid == os.Getpid() {
		if len(parts) > 2 {
			if _, ok := held.Load(parts[2]); ok {
				return pollBusy
			}
		}
		slog.Debug("Removing lock left by an earlier process", "path", lockFile, "owner", pid)
		removeIfUnchanged(lockFile, content)
		return 0
	}

	if isPidAlive(pid) {
		slog.Debug("Waiting for lock", "path", lockFile, "owner", pid)
		return pollBusy
	}

	slog.Debug("Removing stale lock", "path", lockFile, "owner", pid)
	removeIfUnchanged(lockFile, content)
	return 0
}

// removeIfUnchanged removes lockFile only while it still holds content.
func removeIfUnchanged(lockFile string, content []byte) error {
	current, err := os.ReadFile(lockFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !bytes.Equal(current, content) {
		slog.Debug("Lock changed hands, leaving it", "path", lockFile)
		return nil
	}
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks existence without delivering anything.
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}

	// EPERM: the process exists but belongs to someone else.
	return true
}
