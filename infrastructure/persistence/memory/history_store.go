package memory

import (
	"context"
	"fmt"
	"sync"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

type keywordSets struct {
	searched map[string]struct{}
	tracked  map[string]struct{}
	clicked  map[string]struct{}
}

// InMemoryHistoryStore provides an in-memory implementation of UserHistoryStore
type InMemoryHistoryStore struct {
	mu    sync.RWMutex
	users map[string]*keywordSets
}

// NewInMemoryHistoryStore creates a new in-memory history store
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{users: make(map[string]*keywordSets)}
}

// Load returns the user's history. Unknown users have an empty history.
func (s *InMemoryHistoryStore) Load(_ context.Context, userID string) (*entities.UserKeywordHistory, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sets, ok := s.users[userID]
	if !ok {
		return entities.NewUserKeywordHistory(userID, nil, nil, nil), nil
	}
	return entities.NewUserKeywordHistory(userID, keys(sets.searched), keys(sets.tracked), keys(sets.clicked)), nil
}

// RecordExploration adds the seed to searched and keywords to explored
func (s *InMemoryHistoryStore) RecordExploration(_ context.Context, userID, seedKeyword string, keywords []string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sets := s.setsFor(userID)
	add(sets.searched, seedKeyword)
	for _, k := range keywords {
		add(sets.clicked, k)
	}
	return nil
}

// Track marks keywords as tracked by the user
func (s *InMemoryHistoryStore) Track(userID string, keywords ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := s.setsFor(userID)
	for _, k := range keywords {
		add(sets.tracked, k)
	}
}

func (s *InMemoryHistoryStore) setsFor(userID string) *keywordSets {
	sets, ok := s.users[userID]
	if !ok {
		sets = &keywordSets{
			searched: make(map[string]struct{}),
			tracked:  make(map[string]struct{}),
			clicked:  make(map[string]struct{}),
		}
		s.users[userID] = sets
	}
	return sets
}

func add(set map[string]struct{}, keyword string) {
	if k := valueobjects.NormalizeKeyword(keyword); k != "" {
		set[k] = struct{}{}
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
