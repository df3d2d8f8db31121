package repository

import (
	"context"

	"github.com/medmatch/medmatch/pkg/model"
)

const (
	// DefaultMaxDistance is the cosine-distance ceiling: only reasonably
	// close matches qualify as candidates.
	DefaultMaxDistance = 0.5

	// DefaultLimit caps the candidate list returned by a search
	DefaultLimit = 5
)

// SearchInput describes a filtered nearest-neighbor query over trial embeddings
type SearchInput struct {
	Embedding   []float32
	Sex         model.Sex
	AgeGroup    model.AgeGroup
	MaxDistance float64 // zero means DefaultMaxDistance
	Limit       int     // zero means DefaultLimit
}

// TrialStore holds trial records with embeddings and answers filtered
// nearest-neighbor queries. An empty search result is a normal outcome.
type TrialStore interface {
	// PutTrials inserts or replaces trial rows
	PutTrials(ctx context.Context, trials ...*model.Trial) error

	// GetTrial returns a stored trial by NCT number
	GetTrial(ctx context.Context, id model.TrialID) (*model.Trial, error)

	// CountTrials returns the number of stored trials
	CountTrials(ctx context.Context) (int64, error)

	// SearchTrials returns candidates ordered ascending by cosine distance,
	// at most input.Limit rows, every distance below input.MaxDistance.
	SearchTrials(ctx context.Context, input *SearchInput) ([]*model.Trial, error)

	// Dimensions is the embedding size the store is configured for
	Dimensions() int

	Close() error
}
