package match_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/model"
	"github.com/medmatch/medmatch/pkg/repository"
	"github.com/medmatch/medmatch/pkg/usecase/match"
)

// Mock trial store
type mockStore struct {
	trials     []*model.Trial
	lastSearch *repository.SearchInput
}

func (m *mockStore) PutTrials(ctx context.Context, trials ...*model.Trial) error { return nil }

func (m *mockStore) GetTrial(ctx context.Context, id model.TrialID) (*model.Trial, error) {
	return nil, nil
}

func (m *mockStore) CountTrials(ctx context.Context) (int64, error) {
	return int64(len(m.trials)), nil
}

func (m *mockStore) SearchTrials(ctx context.Context, input *repository.SearchInput) ([]*model.Trial, error) {
	m.lastSearch = input
	return m.trials, nil
}

func (m *mockStore) Dimensions() int { return 3 }
func (m *mockStore) Close() error    { return nil }

// Mock embedder
type mockEmbedder struct {
	vec []float32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vec, nil
}

func (m *mockEmbedder) Dimensions() int { return len(m.vec) }

// Mock LLM returning scripted replies in order
type mockLLM struct {
	replies []string
	prompts []string
}

func (m *mockLLM) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	if len(m.prompts) > len(m.replies) {
		return "", nil
	}
	return m.replies[len(m.prompts)-1], nil
}

// Mock lookup
type mockLookup struct {
	name   string
	result lookup.Result
	calls  int
	params lookup.Params
}

func (m *mockLookup) Spec() *lookup.Spec {
	return &lookup.Spec{Name: m.name, Description: "mock"}
}

func (m *mockLookup) Execute(ctx context.Context, params lookup.Params) lookup.Result {
	m.calls++
	m.params = params
	return m.result
}

func testTrials() []*model.Trial {
	return []*model.Trial{
		{ID: "NCT001", Title: "Metformin Study", Conditions: "Type 2 Diabetes", Distance: 0.1},
		{ID: "NCT002", Title: "Insulin Study", Conditions: "Type 1 Diabetes", Distance: 0.3},
	}
}

func testQuery(t *testing.T) *model.Query {
	t.Helper()
	query, err := model.NewQuery("diabetes fatigue", model.AgeAdult, model.SexAll)
	gt.NoError(t, err)
	return query
}

func newTestPipeline(t *testing.T, store *mockStore, llm *mockLLM, lookups ...lookup.Lookup) *match.Pipeline {
	t.Helper()
	pipeline, err := match.New(match.NewInput{
		Store:    store,
		Embedder: &mockEmbedder{vec: []float32{1, 0, 0}},
		LLM:      llm,
		Registry: lookup.NewRegistry(lookups...),
	})
	gt.NoError(t, err)
	return pipeline
}

func TestRunHappyPath(t *testing.T) {
	pubmed := &mockLookup{
		name:   "search_pubmed",
		result: lookup.Result{"results": []map[string]any{{"id": "100", "title": "A study", "relevance": 1}}},
	}
	llm := &mockLLM{replies: []string{
		`{"queries": [{"api": "search_pubmed", "query": "diabetes", "num_results": 5}], "ranking": "1. NCT001"}`,
		"Final ranking: 1. NCT001 2. NCT002",
		"The first trial fits because it studies diabetes treatment.",
	}}
	store := &mockStore{trials: testTrials()}

	result, err := newTestPipeline(t, store, llm, pubmed).Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageDone)
	gt.A(t, result.Trials).Length(2)
	gt.Equal(t, result.Ranking, "Final ranking: 1. NCT001 2. NCT002")
	gt.Equal(t, result.Explanation, "The first trial fits because it studies diabetes treatment.")

	gt.Equal(t, pubmed.calls, 1)
	gt.Equal(t, pubmed.params.String("query", ""), "diabetes")
	gt.A(t, llm.prompts).Length(3)

	// The search used the query demographics
	gt.Equal(t, store.lastSearch.Sex, model.SexAll)
	gt.Equal(t, store.lastSearch.AgeGroup, model.AgeAdult)
}

func TestRunNoMatchSkipsLLM(t *testing.T) {
	llm := &mockLLM{}
	store := &mockStore{trials: nil}

	result, err := newTestPipeline(t, store, llm).Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageNoMatch)
	gt.A(t, result.Trials).Length(0)

	// The LLM is never consulted when the search comes back empty
	gt.A(t, llm.prompts).Length(0)
}

func TestRunUnparseableProposal(t *testing.T) {
	pubmed := &mockLookup{name: "search_pubmed", result: lookup.Result{"results": []any{}}}
	llm := &mockLLM{replies: []string{
		"I think NCT001 is the best match, followed by NCT002.",
		"Final: NCT001 first.",
		"NCT001 is the closest fit.",
	}}

	result, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm, pubmed).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageDone)

	// A free-text first reply proposes no lookups
	gt.Equal(t, pubmed.calls, 0)
	gt.A(t, llm.prompts).Length(3)
}

func TestRunFencedProposal(t *testing.T) {
	pubmed := &mockLookup{name: "search_pubmed", result: lookup.Result{"results": []any{}}}
	llm := &mockLLM{replies: []string{
		"```json\n{\"queries\": [{\"api\": \"search_pubmed\", \"query\": \"diabetes\"}], \"ranking\": \"1. NCT001\"}\n```",
		"Final ranking.",
		"Explanation.",
	}}

	result, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm, pubmed).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageDone)
	gt.Equal(t, pubmed.calls, 1)
}

func TestRunLookupFailureIsNonFatal(t *testing.T) {
	rxnorm := &mockLookup{
		name:   "search_rxnorm",
		result: lookup.Errorf("RxNorm search failed: %s", "connection refused"),
	}
	llm := &mockLLM{replies: []string{
		`{"queries": [{"api": "search_rxnorm", "drug_name": "metformin"}], "ranking": "1. NCT001"}`,
		"Ranking despite the failure.",
		"Explanation.",
	}}

	result, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm, rxnorm).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageDone)
	gt.Equal(t, result.Ranking, "Ranking despite the failure.")

	// The error marker flows into the re-rank prompt
	gt.A(t, llm.prompts).Length(3)
	gt.S(t, llm.prompts[1]).Contains("RxNorm search failed: connection refused")
}

func TestRunUnknownLookupProposal(t *testing.T) {
	llm := &mockLLM{replies: []string{
		`{"queries": [{"api": "search_nonexistent"}], "ranking": "1. NCT001"}`,
		"Final ranking.",
		"Explanation.",
	}}

	result, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Stage, model.StageDone)
	gt.S(t, llm.prompts[1]).Contains("Unknown lookup: search_nonexistent")
}

func TestRunEmptyTurnsFallBack(t *testing.T) {
	llm := &mockLLM{replies: []string{
		`{"queries": [], "ranking": "1. NCT001"}`,
		"",
		"",
	}}

	result, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, result.Ranking, "No ranking provided after API calls.")
	gt.Equal(t, result.Explanation, "No explanation provided.")
}

func TestRunDuplicateProposalsExecuteOnce(t *testing.T) {
	pubmed := &mockLookup{name: "search_pubmed", result: lookup.Result{"results": []any{}}}
	llm := &mockLLM{replies: []string{
		`{"queries": [
			{"api": "search_pubmed", "query": "first"},
			{"api": "search_pubmed", "query": "second"}
		], "ranking": "1. NCT001"}`,
		"Final ranking.",
		"Explanation.",
	}}

	_, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm, pubmed).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)

	// Duplicates resolve last-write-wins before dispatch
	gt.Equal(t, pubmed.calls, 1)
	gt.Equal(t, pubmed.params.String("query", ""), "second")
}

func TestRunBackfillsLookupText(t *testing.T) {
	meshLookup := &mockLookup{name: "search_mesh", result: lookup.Result{"terms": []any{}, "match_count": 0}}
	llm := &mockLLM{replies: []string{
		`{"queries": [{"api": "search_mesh"}], "ranking": "1. NCT001"}`,
		"Final ranking.",
		"Explanation.",
	}}

	_, err := newTestPipeline(t, &mockStore{trials: testTrials()}, llm, meshLookup).
		Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, meshLookup.params.String("term", ""), "diabetes fatigue")
}

func TestRunMonitorStageOrder(t *testing.T) {
	llm := &mockLLM{replies: []string{
		`{"queries": [], "ranking": "1. NCT001"}`,
		"Final ranking.",
		"Explanation.",
	}}

	var stages []match.Stage
	pipeline, err := match.New(match.NewInput{
		Store:    &mockStore{trials: testTrials()},
		Embedder: &mockEmbedder{vec: []float32{1, 0, 0}},
		LLM:      llm,
		Registry: lookup.NewRegistry(),
	}, match.WithMonitor(func(stage match.Stage) {
		stages = append(stages, stage)
	}))
	gt.NoError(t, err)

	_, err = pipeline.Run(context.Background(), testQuery(t))
	gt.NoError(t, err)
	gt.Equal(t, stages, []match.Stage{
		match.StageInit, match.StageEmbedded, match.StageSearched,
		match.StageProposed, match.StageEnriched, match.StageRanked,
		match.StageExplained, match.StageDone,
	})
}

func TestRunDimensionMismatch(t *testing.T) {
	pipeline, err := match.New(match.NewInput{
		Store:    &mockStore{},
		Embedder: &mockEmbedder{vec: []float32{1, 0}}, // store expects 3
		LLM:      &mockLLM{},
		Registry: lookup.NewRegistry(),
	})
	gt.NoError(t, err)

	_, err = pipeline.Run(context.Background(), testQuery(t))
	gt.Error(t, err)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := match.New(match.NewInput{})
	gt.Error(t, err)

	_, err = match.New(match.NewInput{
		Store:    &mockStore{},
		Embedder: &mockEmbedder{vec: []float32{1, 0, 0}},
		LLM:      &mockLLM{},
	})
	gt.Error(t, err)
}
