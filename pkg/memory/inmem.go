package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/models"
)

// InMemoryStore keeps history in process memory. Used in demo mode and
// tests; everything is lost on restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]storedTurn
}

type storedTurn struct {
	userID string
	turn   models.ConversationTurn
}

// NewInMemory builds an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string][]storedTurn)}
}

func (s *InMemoryStore) AppendMessage(_ context.Context, threadID, userID string, turn models.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], storedTurn{userID: userID, turn: turn})
	return nil
}

func (s *InMemoryStore) History(_ context.Context, threadID string, limit int) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.threads[threadID]
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}

	turns := make([]models.ConversationTurn, len(stored))
	for i, st := range stored {
		turns[i] = st.turn
	}
	return turns, nil
}

func (s *InMemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	for threadID, stored := range s.threads {
		kept := stored[:0]
		for _, st := range stored {
			if st.turn.CreatedAt.Before(olderThan) {
				pruned++
				continue
			}
			kept = append(kept, st)
		}
		if len(kept) == 0 {
			delete(s.threads, threadID)
		} else {
			s.threads[threadID] = kept
		}
	}
	return pruned, nil
}

func (s *InMemoryStore) Close() error { return nil }
