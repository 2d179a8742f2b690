package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Domenick1991/skyinventory/internal/domain"
)

// Locker hands out an exclusive section per flight. Distinct flights never
// share a section.
type Locker interface {
	Lock(ctx context.Context, flightID string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex. Entries are reference counted
// and dropped once nobody holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, flightID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[flightID]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[flightID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.drop(flightID, e)
			})
		}, nil
	case <-ctx.Done():
		l.drop(flightID, e)
		return nil, fmt.Errorf("%w: lock flight %s: %w", domain.ErrStoreUnavailable, flightID, ctx.Err())
	}
}

func (l *LocalLocker) drop(flightID string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, flightID)
	}
}

// held reports how many flights currently have a lock entry.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Chain takes every locker in order and releases them in reverse. A local
// locker in front of a distributed one keeps same-process waiters off the
// network.
type Chain []Locker

func (c Chain) Lock(ctx context.Context, flightID string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, l := range c {
		unlock, err := l.Lock(ctx, flightID)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

var (
	_ Locker = (*LocalLocker)(nil)
	_ Locker = Chain(nil)
)
