package services

import "sync"

// campaignLocks serializes lifecycle work per campaign id.
// Entries are reference counted and removed once nobody holds or waits on them.
type campaignLocks struct {
	mu    sync.Mutex
	locks map[uint]*campaignLock
}

type campaignLock struct {
	mu   sync.Mutex
	refs int
}

func newCampaignLocks() *campaignLocks {
	return &campaignLocks{locks: make(map[uint]*campaignLock)}
}

// lock blocks until the caller owns the campaign and returns the matching unlock
func (l *campaignLocks) lock(id uint) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &campaignLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// size returns the number of live entries
func (l *campaignLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
