package model

// Stage is the terminal outcome of a matching pipeline run
type Stage string

const (
	StageDone    Stage = "done"
	StageNoMatch Stage = "no_match"
)

// MatchResult is the output of one pipeline run: the ordered candidates plus
// the model-produced ranking and explanation texts. It is not persisted.
type MatchResult struct {
	Query       *Query
	Stage       Stage
	Trials      []*Trial
	Ranking     string
	Explanation string
}

// NoMatchMessage is shown to the user when the store returns no trials under
// the distance ceiling. This outcome is terminal but not an error.
const NoMatchMessage = "No matching trials found. Try different symptoms."
