package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/reactivation/internal/types"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// insertBatch bounds the rows per INSERT to stay under SQLite's variable limit.
const insertBatch = 500

// SQLiteStore implements Store on SQLite through database/sql. Statements
// are built with ent's dialect-aware SQL builder.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTables creates the artifact tables if they do not exist.
func (s *SQLiteStore) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS well_features (
			well_id     TEXT PRIMARY KEY,
			api         TEXT NOT NULL DEFAULT '',
			computed_at TEXT NOT NULL,
			payload     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ranking_runs (
			id         TEXT PRIMARY KEY,
			as_of      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			profile    TEXT NOT NULL DEFAULT '',
			payload    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ranking_runs_created ON ranking_runs (created_at DESC);

		CREATE TABLE IF NOT EXISTS reports (
			well_key    TEXT PRIMARY KEY,
			id          TEXT NOT NULL,
			category    TEXT NOT NULL,
			score       INTEGER NOT NULL,
			analyzed_at TEXT NOT NULL,
			payload     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reports_score ON reports (score DESC, well_key);

		CREATE TABLE IF NOT EXISTS well_events (
			event_id    TEXT NOT NULL,
			well_key    TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			summary     TEXT NOT NULL,
			category    TEXT NOT NULL,
			payload     TEXT,
			PRIMARY KEY (well_key, event_id)
		);

		CREATE INDEX IF NOT EXISTS idx_well_events_time ON well_events (well_key, occurred_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *SQLiteStore) exec(ctx context.Context, q string, args []any) error {
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

// SaveFeatures upserts feature rows keyed by well ID.
func (s *SQLiteStore) SaveFeatures(ctx context.Context, rows []types.FeatureRow) error {
	now := formatTime(time.Now())
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		ins := builder().Insert("well_features").Columns("well_id", "api", "computed_at", "payload")
		for _, r := range rows[start:end] {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encoding features for %s: %w", r.WellID, err)
			}
			ins.Values(r.WellID, r.API, now, string(payload))
		}
		ins.OnConflict(entsql.ConflictColumns("well_id"), entsql.ResolveWithNewValues())
		q, args := ins.Query()
		if err := s.exec(ctx, q, args); err != nil {
			return fmt.Errorf("saving features: %w", err)
		}
	}
	return nil
}

// FeaturesByWell returns cached feature rows for the given well IDs.
func (s *SQLiteStore) FeaturesByWell(ctx context.Context, wellIDs []string) (map[string]types.FeatureRow, error) {
	out := make(map[string]types.FeatureRow, len(wellIDs))
	for start := 0; start < len(wellIDs); start += insertBatch {
		end := min(start+insertBatch, len(wellIDs))
		ids := make([]any, 0, end-start)
		for _, id := range wellIDs[start:end] {
			ids = append(ids, id)
		}
		q, args := builder().Select("payload").
			From(entsql.Table("well_features")).
			Where(entsql.In("well_id", ids...)).
			Query()
		err := s.scanPayloads(ctx, q, args, func(b []byte) error {
			var r types.FeatureRow
			if err := json.Unmarshal(b, &r); err != nil {
				return err
			}
			out[r.WellID] = r
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("querying features: %w", err)
		}
	}
	return out, nil
}

// SaveRanking stores a ranking run.
func (s *SQLiteStore) SaveRanking(ctx context.Context, run types.RankingRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding ranking %s: %w", run.ID, err)
	}
	q, args := builder().Insert("ranking_runs").
		Columns("id", "as_of", "created_at", "profile", "payload").
		Values(run.ID, formatTime(run.AsOf), formatTime(run.CreatedAt), run.Profile, string(payload)).
		Query()
	if err := s.exec(ctx, q, args); err != nil {
		return fmt.Errorf("saving ranking %s: %w", run.ID, err)
	}
	return nil
}

// LatestRanking returns the most recently created ranking run.
func (s *SQLiteStore) LatestRanking(ctx context.Context) (types.RankingRun, error) {
	q, args := builder().Select("payload").
		From(entsql.Table("ranking_runs")).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	var run types.RankingRun
	found := false
	err := s.scanPayloads(ctx, q, args, func(b []byte) error {
		found = true
		return json.Unmarshal(b, &run)
	})
	if err != nil {
		return types.RankingRun{}, fmt.Errorf("querying latest ranking: %w", err)
	}
	if !found {
		return types.RankingRun{}, ErrNotFound
	}
	return run, nil
}

// SaveReport upserts an analysis report under its well key.
func (s *SQLiteStore) SaveReport(ctx context.Context, result types.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", result.ID, err)
	}
	q, args := builder().Insert("reports").
		Columns("well_key", "id", "category", "score", "analyzed_at", "payload").
		Values(ReportKey(result), result.ID, string(result.Category), result.Score, formatTime(result.AnalyzedAt), string(payload)).
		OnConflict(entsql.ConflictColumns("well_key"), entsql.ResolveWithNewValues()).
		Query()
	if err := s.exec(ctx, q, args); err != nil {
		return fmt.Errorf("saving report %s: %w", ReportKey(result), err)
	}
	return nil
}

// Report returns the report filed under wellKey.
func (s *SQLiteStore) Report(ctx context.Context, wellKey string) (types.AnalysisResult, error) {
	q, args := builder().Select("payload").
		From(entsql.Table("reports")).
		Where(entsql.EQ("well_key", wellKey)).
		Query()
	var r types.AnalysisResult
	found := false
	err := s.scanPayloads(ctx, q, args, func(b []byte) error {
		found = true
		return json.Unmarshal(b, &r)
	})
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("querying report %s: %w", wellKey, err)
	}
	if !found {
		return types.AnalysisResult{}, ErrNotFound
	}
	return r, nil
}

// ListReports returns reports ordered by score, highest first.
func (s *SQLiteStore) ListReports(ctx context.Context, opts ListOptions) ([]types.AnalysisResult, error) {
	sel := builder().Select("payload").From(entsql.Table("reports"))
	var preds []*entsql.Predicate
	if opts.Category != "" {
		preds = append(preds, entsql.EQ("category", string(opts.Category)))
	}
	if opts.MinScore > 0 {
		preds = append(preds, entsql.GTE("score", opts.MinScore))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	q, args := sel.OrderBy(entsql.Desc("score"), entsql.Asc("well_key")).Limit(opts.limit()).Query()

	var out []types.AnalysisResult
	err := s.scanPayloads(ctx, q, args, func(b []byte) error {
		var r types.AnalysisResult
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return out, nil
}

// DeleteReport removes the report filed under wellKey.
func (s *SQLiteStore) DeleteReport(ctx context.Context, wellKey string) error {
	q, args := builder().Delete("reports").Where(entsql.EQ("well_key", wellKey)).Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("deleting report %s: %w", wellKey, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// WriteEvents appends event entries; duplicates are ignored.
func (s *SQLiteStore) WriteEvents(ctx context.Context, entries []types.EventEntry) error {
	for start := 0; start < len(entries); start += insertBatch {
		end := min(start+insertBatch, len(entries))
		ins := builder().Insert("well_events").
			Columns("event_id", "well_key", "event_type", "occurred_at", "summary", "category", "payload")
		for _, e := range entries[start:end] {
			ins.Values(e.EventID, e.WellKey, e.EventType, formatTime(e.OccurredAt), e.Summary, e.Category, string(e.Payload))
		}
		ins.OnConflict(entsql.ConflictColumns("well_key", "event_id"), entsql.DoNothing())
		q, args := ins.Query()
		if err := s.exec(ctx, q, args); err != nil {
			return fmt.Errorf("writing events: %w", err)
		}
	}
	return nil
}

// EventsByWell returns a well's events, newest first.
func (s *SQLiteStore) EventsByWell(ctx context.Context, wellKey string, limit int) ([]types.EventEntry, error) {
	q, args := builder().Select("event_id", "event_type", "occurred_at", "summary", "category", "payload").
		From(entsql.Table("well_events")).
		Where(entsql.EQ("well_key", wellKey)).
		OrderBy(entsql.Desc("occurred_at")).
		Limit(eventLimit(limit)).
		Query()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events for %s: %w", wellKey, err)
	}
	defer rows.Close()

	var out []types.EventEntry
	for rows.Next() {
		var (
			e        types.EventEntry
			occurred string
			payload  sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &occurred, &e.Summary, &e.Category, &payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.WellKey = wellKey
		e.OccurredAt, err = time.Parse(timeLayout, occurred)
		if err != nil {
			return nil, fmt.Errorf("parsing event time %q: %w", occurred, err)
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) scanPayloads(ctx context.Context, q string, args []any, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		if err := fn([]byte(payload)); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
	}
	return rows.Err()
}
