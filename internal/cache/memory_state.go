package cache

import (
	"context"
	"sync"

	"surveybot/internal/model"
)

const memoryShards = 64

type stateShard struct {
	mu     sync.RWMutex
	states map[model.RespondentID]*model.ConversationState
}

// MemoryStateStore keeps conversations in process memory, sharded by respondent id.
// State is lost on restart.
type MemoryStateStore struct {
	shards [memoryShards]stateShard
}

// NewMemoryStateStore creates an empty in-memory store
func NewMemoryStateStore() *MemoryStateStore {
	s := &MemoryStateStore{}
	for i := range s.shards {
		s.shards[i].states = make(map[model.RespondentID]*model.ConversationState)
	}
	return s
}

func (s *MemoryStateStore) shard(id model.RespondentID) *stateShard {
	return &s.shards[uint64(id)%memoryShards]
}

// Get returns a copy of the stored state
func (s *MemoryStateStore) Get(_ context.Context, id model.RespondentID) (*model.ConversationState, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.states[id]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

// Put stores a copy of state
func (s *MemoryStateStore) Put(_ context.Context, state *model.ConversationState) error {
	sh := s.shard(state.RespondentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.states[state.RespondentID] = state.Clone()
	return nil
}

// Delete removes the state; deleting a missing respondent is not an error
func (s *MemoryStateStore) Delete(_ context.Context, id model.RespondentID) error {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.states, id)
	return nil
}

// Len counts stored conversations
func (s *MemoryStateStore) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		n += len(s.shards[i].states)
		s.shards[i].mu.RUnlock()
	}
	return n
}
