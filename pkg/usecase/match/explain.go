package match

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// fallbackExplanation is substituted when the explanation turn returns empty
// content
const fallbackExplanation = "No explanation provided."

// explain sends the third turn: a plain-language explanation for a
// non-expert, free of jargon and statistical notation. The prompt instructs
// the model to answer 'No good matches found' when nothing fits.
func (p *Pipeline) explain(ctx context.Context, s State) (State, error) {
	prompt, err := renderPrompt(explainPromptTmpl, map[string]any{
		"FreeText": s.Query.FreeText,
		"AgeGroup": s.Query.AgeGroup,
		"Sex":      s.Query.Sex,
		"Ranking":  s.Ranking,
	})
	if err != nil {
		return s.advance(StageAborted), err
	}

	content, err := p.llm.Complete(ctx, chatMessages(prompt))
	if err != nil {
		return s.advance(StageAborted), goerr.Wrap(err, "explanation turn failed")
	}

	s.Explanation = strings.TrimSpace(content)
	if s.Explanation == "" {
		s.Explanation = fallbackExplanation
	}
	return s.advance(StageExplained), nil
}
