// Package ingest loads preprocessed clinical-trial CSV exports into the
// trial store, generating embeddings on a bounded worker pool.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/medmatch/medmatch/pkg/adapter"
	"github.com/medmatch/medmatch/pkg/model"
	"github.com/medmatch/medmatch/pkg/repository"
	"github.com/medmatch/medmatch/pkg/utils/logging"
)

const defaultBatchSize = 200

// Pipeline embeds and stores trial rows
type Pipeline struct {
	store    repository.TrialStore
	embedder adapter.Embedder

	workers   int
	batchSize int
}

type Option func(*Pipeline)

// WithWorkers bounds the embedding worker pool
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBatchSize sets the store insert batch size
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// New creates an ingestion pipeline
func New(store repository.TrialStore, embedder adapter.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, goerr.New("trial store is required")
	}
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}

	p := &Pipeline{
		store:     store,
		embedder:  embedder,
		workers:   4,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// IngestCSV reads a preprocessed trials CSV, embeds each row and stores it.
// Rows that fail to embed are logged and skipped. Returns the number of
// trials stored.
func (p *Pipeline) IngestCSV(ctx context.Context, r io.Reader) (int, error) {
	logger := logging.From(ctx)

	trials, err := parseCSV(r)
	if err != nil {
		return 0, err
	}
	logger.Info("parsed trial rows", "count", len(trials))

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create embedding pool")
	}
	defer pool.Release()

	var mu sync.Mutex
	var wg sync.WaitGroup
	embedded := make([]*model.Trial, 0, len(trials))

	for _, trial := range trials {
		trial := trial

		run := func() {
			defer wg.Done()
			vec, err := p.embedder.Embed(ctx, trial.EmbeddingText)
			if err != nil {
				logger.Warn("failed to embed trial, skipping",
					"nct_number", trial.ID, "error", err)
				return
			}
			trial.Embedding = vec

			mu.Lock()
			embedded = append(embedded, trial)
			mu.Unlock()
		}

		wg.Add(1)
		if pool.Submit(run) != nil {
			run()
		}
	}
	wg.Wait()

	for start := 0; start < len(embedded); start += p.batchSize {
		end := start + p.batchSize
		if end > len(embedded) {
			end = len(embedded)
		}
		if err := p.store.PutTrials(ctx, embedded[start:end]...); err != nil {
			return 0, goerr.Wrap(err, "failed to store trial batch",
				goerr.V("offset", start))
		}
	}

	logger.Info("ingestion complete", "stored", len(embedded), "skipped", len(trials)-len(embedded))
	return len(embedded), nil
}

// parseCSV maps header-named columns onto trial records. Rows without an NCT
// number are dropped.
func parseCSV(r io.Reader) ([]*model.Trial, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CSV header")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["NCT Number"]; !ok {
		return nil, goerr.New("CSV is missing the NCT Number column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var trials []*model.Trial
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read CSV row")
		}

		id := field(record, "NCT Number")
		if id == "" {
			continue
		}

		enrollment, _ := strconv.ParseFloat(field(record, "Enrollment"), 64)

		trial := &model.Trial{
			ID:            model.TrialID(id),
			Title:         field(record, "Study Title"),
			URL:           field(record, "Study URL"),
			Status:        field(record, "Study Status"),
			Summary:       field(record, "Brief Summary"),
			Conditions:    field(record, "Conditions"),
			Interventions: field(record, "Interventions"),
			Sponsor:       field(record, "Sponsor"),
			Sex:           model.Sex(field(record, "Sex")),
			Age:           field(record, "Age"),
			Phases:        field(record, "Phases"),
			Enrollment:    enrollment,
			StudyType:     field(record, "Study Type"),
			Locations:     field(record, "Locations"),
			EmbeddingText: field(record, "text_for_embedding"),
		}
		if trial.EmbeddingText == "" {
			trial.EmbeddingText = strings.Join([]string{
				trial.Title, trial.Conditions, trial.Summary,
			}, " ")
		}

		trials = append(trials, trial)
	}

	return trials, nil
}
