package match

import (
	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/model"
)

// Stage tracks pipeline progress for one query
type Stage string

const (
	StageInit      Stage = "init"
	StageEmbedded  Stage = "embedded"
	StageSearched  Stage = "searched"
	StageProposed  Stage = "proposed"
	StageEnriched  Stage = "enriched"
	StageRanked    Stage = "ranked"
	StageExplained Stage = "explained"
	StageDone      Stage = "done"
	StageNoMatch   Stage = "no_match"
	StageAborted   Stage = "aborted"
)

// State accumulates across the pipeline for a single query. Transitions copy
// the value rather than mutating shared state, and the state is discarded
// once the run produces its result.
type State struct {
	Stage Stage
	Query *model.Query

	Embedding  []float32
	Candidates []*model.Trial

	Proposals          []*lookup.Request
	ProvisionalRanking string

	// LookupResults is keyed by lookup name; duplicate proposals for the
	// same lookup resolve last-write-wins.
	LookupResults map[string]lookup.Result

	Ranking     string
	Explanation string
}

func newState(query *model.Query) State {
	return State{
		Stage: StageInit,
		Query: query,
	}
}

func (s State) advance(stage Stage) State {
	s.Stage = stage
	return s
}
