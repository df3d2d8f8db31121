package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/medmatch/medmatch/pkg/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS clinical_trials (
	nct_number         TEXT PRIMARY KEY,
	study_title        TEXT NOT NULL,
	study_url          TEXT NOT NULL DEFAULT '',
	study_status       TEXT NOT NULL DEFAULT '',
	brief_summary      TEXT NOT NULL DEFAULT '',
	conditions         TEXT NOT NULL DEFAULT '',
	interventions      TEXT NOT NULL DEFAULT '',
	sponsor            TEXT NOT NULL DEFAULT '',
	sex                TEXT NOT NULL DEFAULT 'ALL',
	age                TEXT NOT NULL DEFAULT '',
	phases             TEXT NOT NULL DEFAULT '',
	enrollment         REAL NOT NULL DEFAULT 0,
	study_type         TEXT NOT NULL DEFAULT '',
	locations          TEXT NOT NULL DEFAULT '',
	text_for_embedding TEXT NOT NULL DEFAULT '',
	embedding          BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trials_sex ON clinical_trials (sex);
`

// sqliteStore implements TrialStore on a local SQLite database. Embeddings
// are little-endian float32 blobs; cosine distance is computed in-process.
type sqliteStore struct {
	db         *sql.DB
	dimensions int
}

type Option func(*sqliteStore)

// WithStoreDimensions overrides the configured embedding size (default 384)
func WithStoreDimensions(dims int) Option {
	return func(s *sqliteStore) {
		s.dimensions = dims
	}
}

// New opens (creating if needed) a SQLite-backed trial store
func New(path string, opts ...Option) (TrialStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open trial store", goerr.V("path", path))
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to apply pragma", goerr.V("pragma", pragma))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create schema")
	}

	s := &sqliteStore{
		db:         db,
		dimensions: 384,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *sqliteStore) Dimensions() int {
	return s.dimensions
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) PutTrials(ctx context.Context, trials ...*model.Trial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO clinical_trials (
			nct_number, study_title, study_url, study_status, brief_summary,
			conditions, interventions, sponsor, sex, age, phases, enrollment,
			study_type, locations, text_for_embedding, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, t := range trials {
		if t.ID == "" {
			return goerr.New("trial ID is empty", goerr.V("title", t.Title))
		}
		if len(t.Embedding) != s.dimensions {
			return goerr.Wrap(ErrVectorDimension, "trial embedding has wrong size",
				goerr.V("nct_number", t.ID),
				goerr.V("want", s.dimensions), goerr.V("got", len(t.Embedding)))
		}

		if _, err := stmt.ExecContext(ctx,
			string(t.ID), t.Title, t.URL, t.Status, t.Summary,
			t.Conditions, t.Interventions, t.Sponsor, string(t.Sex), t.Age,
			t.Phases, t.Enrollment, t.StudyType, t.Locations, t.EmbeddingText,
			EncodeVector(t.Embedding),
		); err != nil {
			return goerr.Wrap(err, "failed to insert trial", goerr.V("nct_number", t.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit trials")
	}
	return nil
}

func (s *sqliteStore) GetTrial(ctx context.Context, id model.TrialID) (*model.Trial, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT nct_number, study_title, study_url, study_status, brief_summary,
			conditions, interventions, sponsor, sex, age, phases, enrollment,
			study_type, locations, text_for_embedding, embedding
		FROM clinical_trials WHERE nct_number = ?`, string(id))

	trial, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.New("trial not found", goerr.V("nct_number", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get trial", goerr.V("nct_number", id))
	}
	return trial, nil
}

func (s *sqliteStore) CountTrials(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clinical_trials`).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count trials")
	}
	return n, nil
}

func (s *sqliteStore) SearchTrials(ctx context.Context, input *SearchInput) ([]*model.Trial, error) {
	if len(input.Embedding) != s.dimensions {
		return nil, goerr.Wrap(ErrVectorDimension, "query embedding has wrong size",
			goerr.V("want", s.dimensions), goerr.V("got", len(input.Embedding)))
	}

	maxDistance := input.MaxDistance
	if maxDistance == 0 {
		maxDistance = DefaultMaxDistance
	}
	limit := input.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	query := `
		SELECT nct_number, study_title, study_url, study_status, brief_summary,
			conditions, interventions, sponsor, sex, age, phases, enrollment,
			study_type, locations, text_for_embedding, embedding
		FROM clinical_trials WHERE sex = ?`
	args := []any{string(input.Sex)}

	// Age eligibility is a compound string like "ADULT, OLDER_ADULT"; the
	// filter is substring containment. ALL means no age restriction.
	if input.AgeGroup != model.AgeAll {
		query += ` AND age LIKE ?`
		args = append(args, "%"+string(input.AgeGroup)+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query trials")
	}
	defer rows.Close()

	var candidates []*model.Trial
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan trial row")
		}

		distance, err := CosineDistance(input.Embedding, trial.Embedding)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compute distance", goerr.V("nct_number", trial.ID))
		}
		if distance >= maxDistance {
			continue
		}

		trial.Distance = distance
		candidates = append(candidates, trial)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate trial rows")
	}

	// Stable: ties keep scan order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (*model.Trial, error) {
	var t model.Trial
	var id, sex string
	var blob []byte

	if err := row.Scan(&id, &t.Title, &t.URL, &t.Status, &t.Summary,
		&t.Conditions, &t.Interventions, &t.Sponsor, &sex, &t.Age,
		&t.Phases, &t.Enrollment, &t.StudyType, &t.Locations,
		&t.EmbeddingText, &blob); err != nil {
		return nil, err
	}

	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, err
	}

	t.ID = model.TrialID(id)
	t.Sex = model.Sex(sex)
	t.Embedding = vec
	return &t, nil
}
