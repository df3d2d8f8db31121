package match

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/medmatch/medmatch/pkg/lookup"
)

// fallbackProvisionalRanking is used when the structured reply parses but
// carries no ranking text
const fallbackProvisionalRanking = "No ranking provided."

// proposal is the structured reply expected from the first turn
type proposal struct {
	Queries []*lookup.Request `json:"queries"`
	Ranking string            `json:"ranking"`
}

// propose sends the first turn: query, demographics, candidates and lookup
// specs go in; a set of lookup requests plus a provisional ranking come back.
// A reply that does not parse is degraded, not fatal: the raw text becomes
// the provisional ranking and no lookups are proposed.
func (p *Pipeline) propose(ctx context.Context, s State) (State, error) {
	lookupsJSON, err := json.MarshalIndent(p.registry.Specs(), "", "  ")
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "failed to marshal lookup specs")
	}

	candidatesJSON, err := trialsJSON(s.Candidates)
	if err != nil {
		return s.advance(StageAborted), err
	}

	prompt, err := renderPrompt(proposePromptTmpl, map[string]any{
		"FreeText":    s.Query.FreeText,
		"AgeGroup":    s.Query.AgeGroup,
		"Sex":         s.Query.Sex,
		"LookupsJSON": string(lookupsJSON),
		"TrialsJSON":  candidatesJSON,
	})
	if err != nil {
		return s.advance(StageAborted), err
	}

	content, err := p.llm.Complete(ctx, chatMessages(prompt))
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "proposal turn failed")
	}

	s.Proposals, s.ProvisionalRanking = parseProposal(content)
	return s.advance(StageProposed), nil
}

// parseProposal extracts the lookup requests and provisional ranking from the
// model reply, falling back to treating the whole reply as ranking text.
func parseProposal(content string) ([]*lookup.Request, string) {
	var prop proposal
	if err := json.Unmarshal([]byte(extractJSON(content)), &prop); err != nil {
		raw := strings.TrimSpace(content)
		if raw == "" {
			raw = fallbackProvisionalRanking
		}
		return nil, raw
	}

	ranking := strings.TrimSpace(prop.Ranking)
	if ranking == "" {
		ranking = fallbackProvisionalRanking
	}
	return prop.Queries, ranking
}

// extractJSON strips markdown code fences some models wrap around JSON
func extractJSON(content string) string {
	text := strings.TrimSpace(content)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
