// Package match implements the trial ranking and enrichment pipeline: a
// filtered nearest-neighbor search over trial embeddings followed by a
// three-turn LLM workflow with dynamically selected medical lookups.
package match

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/medmatch/medmatch/pkg/adapter"
	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/model"
	"github.com/medmatch/medmatch/pkg/repository"
	"github.com/medmatch/medmatch/pkg/utils/logging"
)

// Pipeline drives the ranking state machine:
// INIT → EMBEDDED → SEARCHED → PROPOSED → ENRICHED → RANKED → EXPLAINED → DONE,
// with NO_MATCH terminal on an empty search and ABORTED on input errors.
type Pipeline struct {
	store    repository.TrialStore
	embedder adapter.Embedder
	llm      adapter.LLM
	registry *lookup.Registry

	maxDistance   float64
	limit         int
	lookupWorkers int
	monitor       func(Stage)
}

// NewInput contains the pipeline's collaborators
type NewInput struct {
	Store    repository.TrialStore
	Embedder adapter.Embedder
	LLM      adapter.LLM
	Registry *lookup.Registry
}

type Option func(*Pipeline)

// WithMaxDistance overrides the cosine-distance ceiling
func WithMaxDistance(d float64) Option {
	return func(p *Pipeline) {
		p.maxDistance = d
	}
}

// WithLimit overrides the candidate cap
func WithLimit(n int) Option {
	return func(p *Pipeline) {
		p.limit = n
	}
}

// WithLookupWorkers bounds the lookup fan-out pool
func WithLookupWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.lookupWorkers = n
		}
	}
}

// WithMonitor registers a callback invoked as each stage is reached
func WithMonitor(fn func(Stage)) Option {
	return func(p *Pipeline) {
		p.monitor = fn
	}
}

// New creates a pipeline. All collaborators are required.
func New(input NewInput, opts ...Option) (*Pipeline, error) {
	if input.Store == nil {
		return nil, goerr.New("trial store is required")
	}
	if input.Embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if input.LLM == nil {
		return nil, goerr.New("LLM is required")
	}
	if input.Registry == nil {
		return nil, goerr.New("lookup registry is required")
	}

	p := &Pipeline{
		store:    input.Store,
		embedder: input.Embedder,
		llm:      input.LLM,
		registry: input.Registry,

		maxDistance:   repository.DefaultMaxDistance,
		limit:         repository.DefaultLimit,
		lookupWorkers: 4,
		monitor:       func(Stage) {},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run executes the pipeline for one query. A NO_MATCH outcome returns a
// result with Stage set and no error; only input errors abort.
func (p *Pipeline) Run(ctx context.Context, query *model.Query) (*model.MatchResult, error) {
	logger := logging.From(ctx)

	if err := query.Validate(); err != nil {
		return nil, err
	}
	if p.embedder.Dimensions() != p.store.Dimensions() {
		return nil, goerr.Wrap(adapter.ErrDimensionMismatch,
			"embedder and store disagree on vector size",
			goerr.V("embedder", p.embedder.Dimensions()),
			goerr.V("store", p.store.Dimensions()))
	}

	state := newState(query)
	p.monitor(state.Stage)

	state, err := p.embed(ctx, state)
	if err != nil {
		return nil, err
	}
	p.monitor(state.Stage)

	state, err = p.search(ctx, state)
	if err != nil {
		return nil, err
	}
	p.monitor(state.Stage)

	if state.Stage == StageNoMatch {
		logger.Info("no matching trials", "query", query.FreeText)
		return &model.MatchResult{
			Query: query,
			Stage: model.StageNoMatch,
		}, nil
	}
	logger.Info("found candidate trials", "count", len(state.Candidates))

	state, err = p.propose(ctx, state)
	if err != nil {
		return nil, err
	}
	p.monitor(state.Stage)
	logger.Info("model proposed lookups", "count", len(state.Proposals))

	state = p.enrich(ctx, state)
	p.monitor(state.Stage)

	state, err = p.rank(ctx, state)
	if err != nil {
		return nil, err
	}
	p.monitor(state.Stage)

	state, err = p.explain(ctx, state)
	if err != nil {
		return nil, err
	}
	p.monitor(state.Stage)

	state = state.advance(StageDone)
	p.monitor(state.Stage)

	return &model.MatchResult{
		Query:       query,
		Stage:       model.StageDone,
		Trials:      state.Candidates,
		Ranking:     state.Ranking,
		Explanation: state.Explanation,
	}, nil
}

// embed turns the query text into a vector; a wrong dimension aborts
func (p *Pipeline) embed(ctx context.Context, s State) (State, error) {
	vec, err := p.embedder.Embed(ctx, s.Query.FreeText)
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "failed to embed query")
	}
	if len(vec) != p.store.Dimensions() {
		return s.advance(StageAborted), goerr.Wrap(adapter.ErrDimensionMismatch,
			"query embedding has wrong size",
			goerr.V("want", p.store.Dimensions()), goerr.V("got", len(vec)))
	}

	s.Embedding = vec
	return s.advance(StageEmbedded), nil
}

// search runs the filtered nearest-neighbor query; empty is terminal NO_MATCH
func (p *Pipeline) search(ctx context.Context, s State) (State, error) {
	candidates, err := p.store.SearchTrials(ctx, &repository.SearchInput{
		Embedding:   s.Embedding,
		Sex:         s.Query.Sex,
		AgeGroup:    s.Query.AgeGroup,
		MaxDistance: p.maxDistance,
		Limit:       p.limit,
	})
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "trial search failed")
	}

	if len(candidates) == 0 {
		return s.advance(StageNoMatch), nil
	}

	s.Candidates = candidates
	return s.advance(StageSearched), nil
}
