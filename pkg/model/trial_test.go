package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/medmatch/medmatch/pkg/model"
)

func TestFirstLocation(t *testing.T) {
	testCases := []struct {
		locations string
		want      string
	}{
		{"Boston, MA, USA|Chicago, IL, USA", "Boston, MA, USA"},
		{"Boston, MA, USA", "Boston, MA, USA"},
		{"  Boston  |Chicago", "Boston"},
		{"", ""},
	}

	for _, tc := range testCases {
		trial := &model.Trial{Locations: tc.locations}
		gt.Equal(t, trial.FirstLocation(), tc.want)
	}
}

func TestTrialJSONOmitsEmbedding(t *testing.T) {
	trial := &model.Trial{
		ID:        "NCT001",
		Title:     "Metformin Study",
		Embedding: []float32{1, 2, 3},
		Distance:  0.25,
	}

	data, err := json.Marshal(trial)
	gt.NoError(t, err)

	var raw map[string]any
	gt.NoError(t, json.Unmarshal(data, &raw))
	gt.Equal(t, raw["nct_number"], "NCT001")
	gt.Equal(t, raw["distance"], 0.25)

	_, hasEmbedding := raw["embedding"]
	gt.False(t, hasEmbedding)
}
