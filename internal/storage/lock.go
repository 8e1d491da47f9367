package storage

import (
	"github.com/juju/fslock"
	"github.com/pkg/errors"
)

// LockSuffix is appended to the database path to name its lock file.
const LockSuffix = ".lock"

// ErrDatabaseLocked is returned when another handle holds the database lock.
var ErrDatabaseLocked = errors.New("database is locked by another process")

// fileLock guards a database file against concurrent writers.
type fileLock struct {
	lck *fslock.Lock
}

// acquireLock takes the exclusive lock for the database at path without
// blocking.
func acquireLock(path string) (*fileLock, error) {
	lck := fslock.New(path + LockSuffix)
	if err := lck.TryLock(); err != nil {
		if err == fslock.ErrLocked {
			return nil, errors.Wrap(ErrDatabaseLocked, path)
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	return &fileLock{lck: lck}, nil
}

// release unlocks the lock file.
func (l *fileLock) release() error {
	if l == nil {
		return nil
	}
	return errors.Wrap(l.lck.Unlock(), "unlock database")
}
