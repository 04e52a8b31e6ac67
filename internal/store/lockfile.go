package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrLockBusy indicates another process kept a collection locked for the
// whole retry window.
var ErrLockBusy = errors.New("collection is locked by another process")

// lockFile is a cross-process lock represented by a file holding the
// owner's pid. A lock older than staleAfter whose owner has exited is
// broken by the next caller.
type lockFile struct {
	path       string
	attempts   int
	retryDelay time.Duration
	staleAfter time.Duration
}

func newLockFile(path string) *lockFile {
	return &lockFile{
		path:       path,
		attempts:   10,
		retryDelay: 100 * time.Millisecond,
		staleAfter: 30 * time.Second,
	}
}

// acquire takes the lock, waiting between attempts while it is held.
func (l *lockFile) acquire() error {
	for i := 0; i < l.attempts; i++ {
		if l.tryCreate() {
			return nil
		}
		if l.breakStale() {
			continue
		}
		time.Sleep(l.retryDelay)
	}
	return fmt.Errorf("%w: %s", ErrLockBusy, l.path)
}

func (l *lockFile) release() {
	_ = os.Remove(l.path)
}

func (l *lockFile) tryCreate() bool {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return false
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	_ = f.Close()
	return true
}

// breakStale removes the lock when it is old and its owner is gone.
func (l *lockFile) breakStale() bool {
	info, err := os.Stat(l.path)
	if err != nil || time.Since(info.ModTime()) <= l.staleAfter {
		return false
	}
	if pid, ok := l.owner(); ok && processAlive(pid) {
		return false
	}
	return os.Remove(l.path) == nil
}

// owner returns the pid recorded in the lock.
func (l *lockFile) owner() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive sends signal 0, which checks existence without delivery.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
