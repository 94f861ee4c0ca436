package service

import (
	"sync"

	"surveybot/internal/model"
)

const lockShards = 64

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type lockShard struct {
	mu      sync.Mutex
	entries map[model.RespondentID]*lockEntry
}

// KeyedLocker serializes work per respondent. Entries are dropped once nobody holds or
// waits for them, so memory follows the number of active respondents.
type KeyedLocker struct {
	shards [lockShards]lockShard
}

// NewKeyedLocker creates a locker
func NewKeyedLocker() *KeyedLocker {
	l := &KeyedLocker{}
	for i := range l.shards {
		l.shards[i].entries = make(map[model.RespondentID]*lockEntry)
	}
	return l
}

func (l *KeyedLocker) shard(id model.RespondentID) *lockShard {
	return &l.shards[uint64(id)%lockShards]
}

// Lock blocks until the caller owns id and returns the matching unlock func
func (l *KeyedLocker) Lock(id model.RespondentID) func() {
	sh := l.shard(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if !ok {
		e = &lockEntry{}
		sh.entries[id] = e
	}
	e.refs++
	sh.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		sh.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(sh.entries, id)
		}
		sh.mu.Unlock()
	}
}

// Active returns the number of respondents currently held or waited on
func (l *KeyedLocker) Active() int {
	n := 0
	for i := range l.shards {
		l.shards[i].mu.Lock()
		n += len(l.shards[i].entries)
		l.shards[i].mu.Unlock()
	}
	return n
}
