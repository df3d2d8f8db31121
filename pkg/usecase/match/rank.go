package match

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// fallbackRanking is substituted when the re-rank turn returns empty content
const fallbackRanking = "No ranking provided after API calls."

// rank sends the second turn: the original candidates plus every lookup
// result, asking for the final ranking as free text.
func (p *Pipeline) rank(ctx context.Context, s State) (State, error) {
	candidatesJSON, err := trialsJSON(s.Candidates)
	if err != nil {
		return s.advance(StageAborted), err
	}

	lookupResultsJSON, err := json.Marshal(s.LookupResults)
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "failed to marshal lookup results")
	}

	prompt, err := renderPrompt(rankPromptTmpl, map[string]any{
		"FreeText":          s.Query.FreeText,
		"AgeGroup":          s.Query.AgeGroup,
		"Sex":               s.Query.Sex,
		"TrialsJSON":        candidatesJSON,
		"LookupResultsJSON": string(lookupResultsJSON),
	})
	if err != nil {
		return s.advance(StageAborted), err
	}

	content, err := p.llm.Complete(ctx, chatMessages(prompt))
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "ranking turn failed")
	}

	s.Ranking = strings.TrimSpace(content)
	if s.Ranking == "" {
		s.Ranking = fallbackRanking
	}
	return s.advance(StageRanked), nil
}
