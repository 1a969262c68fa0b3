package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// ExplorationID identifies a single exploration run. It is random per run and
// never derived from the request content.
type ExplorationID struct {
	value string
}

// NewExplorationID creates a new random ExplorationID
func NewExplorationID() ExplorationID {
	return ExplorationID{value: uuid.New().String()}
}

// NewExplorationIDFromString creates an ExplorationID from an existing string
func NewExplorationIDFromString(id string) (ExplorationID, error) {
	if id == "" {
		return ExplorationID{}, errors.New("exploration ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return ExplorationID{}, errors.New("exploration ID must be a valid UUID")
	}
	return ExplorationID{value: id}, nil
}

// String returns the string representation of the ExplorationID
func (id ExplorationID) String() string {
	return id.value
}

// IsZero checks if the ExplorationID is the zero value
func (id ExplorationID) IsZero() bool {
	return id.value == ""
}
