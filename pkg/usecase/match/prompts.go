package match

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/medmatch/medmatch/pkg/model"
	openai "github.com/sashabaranov/go-openai"
)

//go:embed prompt/propose.md
var proposePromptRaw string

//go:embed prompt/rank.md
var rankPromptRaw string

//go:embed prompt/explain.md
var explainPromptRaw string

var (
	proposePromptTmpl = template.Must(template.New("propose").Parse(proposePromptRaw))
	rankPromptTmpl    = template.Must(template.New("rank").Parse(rankPromptRaw))
	explainPromptTmpl = template.Must(template.New("explain").Parse(explainPromptRaw))
)

const systemPrompt = "You are a clinical trial matching assistant. You help patients find relevant clinical trials and explain them clearly."

// promptTrial is the candidate projection sent to the model
type promptTrial struct {
	NCTNumber     model.TrialID `json:"nct_number"`
	Title         string        `json:"title"`
	Conditions    string        `json:"conditions"`
	Summary       string        `json:"summary"`
	Interventions string        `json:"interventions"`
	Distance      float64       `json:"distance"`
}

func trialsJSON(trials []*model.Trial) (string, error) {
	projected := make([]promptTrial, len(trials))
	for i, t := range trials {
		projected[i] = promptTrial{
			NCTNumber:     t.ID,
			Title:         t.Title,
			Conditions:    t.Conditions,
			Summary:       t.Summary,
			Interventions: t.Interventions,
			Distance:      t.Distance,
		}
	}

	data, err := json.Marshal(projected)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal trial candidates")
	}
	return string(data), nil
}

func renderPrompt(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

// chatMessages builds one stateless turn. History is never carried forward;
// every prompt is reconstructed from the pipeline state.
func chatMessages(prompt string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
}
