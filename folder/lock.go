package folder

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when the folder lock cannot be acquired within
// the configured wait.
var ErrLockTimeout = errors.New("timed out waiting for folder lock")

// DotLock is an advisory folder lock backed by an exclusively created lock
// file holding the owner's pid. It guards the whole folder; there is no
// finer-grained locking.
type DotLock struct {
	path string
	held bool
}

func NewDotLock(path string) *DotLock {
	return &DotLock{path: path}
}

// Acquire takes the lock, polling until the timeout elapses. A zero timeout
// means a single attempt.
func (l *DotLock) Acquire(timeout, poll time.Duration) error {
	if l.held {
		return nil
	}

	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.tryAcquire()
		if err != nil {
			return err
		}

		if ok {
			l.held = true
			return nil
		}

		if !time.Now().Add(poll).Before(deadline) {
			return fmt.Errorf("%w: %v", ErrLockTimeout, l.path)
		}

		time.Sleep(poll)
	}
}

func (l *DotLock) tryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		return false, err
	}

	return true, f.Close()
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *DotLock) Release() {
	if !l.held {
		return
	}

	if err := os.Remove(l.path); err != nil {
		logrus.WithError(err).WithField("path", l.path).Warn("Failed to remove lock file")
	}

	l.held = false
}

// Held reports whether this instance currently owns the lock.
func (l *DotLock) Held() bool {
	return l.held
}
