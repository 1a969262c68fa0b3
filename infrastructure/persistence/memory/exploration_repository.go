package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trendscout/domain/core/entities"
	pkgerrors "trendscout/pkg/errors"
)

// InMemoryExplorationRepository provides an in-memory implementation of ExplorationRepository
type InMemoryExplorationRepository struct {
	mu      sync.RWMutex
	results map[string]*entities.ExplorationResult
}

// NewInMemoryExplorationRepository creates a new in-memory repository
func NewInMemoryExplorationRepository() *InMemoryExplorationRepository {
	return &InMemoryExplorationRepository{results: make(map[string]*entities.ExplorationResult)}
}

// Save stores a result, replacing any result with the same ID
func (r *InMemoryExplorationRepository) Save(_ context.Context, result *entities.ExplorationResult) error {
	if result == nil || result.ExplorationID == "" {
		return fmt.Errorf("invalid exploration result")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *result
	r.results[result.ExplorationID] = &stored
	return nil
}

// GetByID retrieves a result by its exploration ID
func (r *InMemoryExplorationRepository) GetByID(_ context.Context, explorationID string) (*entities.ExplorationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, exists := r.results[explorationID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("exploration")
	}
	out := *result
	return &out, nil
}

// ListByUser returns a user's results, newest first
func (r *InMemoryExplorationRepository) ListByUser(_ context.Context, userID string, limit int) ([]*entities.ExplorationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*entities.ExplorationResult
	for _, result := range r.results {
		if result.UserID == userID {
			out := *result
			results = append(results, &out)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CompletedAt.Equal(results[j].CompletedAt) {
			return results[i].CompletedAt.After(results[j].CompletedAt)
		}
		return results[i].ExplorationID < results[j].ExplorationID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
