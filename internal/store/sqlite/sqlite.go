package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return st, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetCachedSeries(ctx context.Context, key string, now time.Time) ([]model.Observation, bool, error) {
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM series_cache WHERE cache_key = ?`, key,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if now.UnixNano() >= expiresAt {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, indicator, country_iso3, country, year, value
		FROM series_cache_rows
		WHERE cache_key = ?
		ORDER BY position
	`, key)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	observations := make([]model.Observation, 0)
	for rows.Next() {
		var observation model.Observation
		var source string
		if err := rows.Scan(&source, &observation.Indicator, &observation.CountryISO3, &observation.Country, &observation.Year, &observation.Value); err != nil {
			return nil, false, err
		}
		observation.Source = model.Source(source)
		observations = append(observations, observation)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return observations, true, nil
}

func (s *Store) PutCachedSeries(ctx context.Context, key string, observations []model.Observation, expiresAt time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM series_cache_rows WHERE cache_key = ?`, key); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO series_cache (cache_key, stored_at, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, time.Now().UnixNano(), expiresAt.UnixNano()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_cache_rows (
			cache_key, position, source, indicator, country_iso3, country, year, value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, observation := range observations {
		if _, err = stmt.ExecContext(ctx,
			key,
			i,
			string(observation.Source),
			observation.Indicator,
			observation.CountryISO3,
			observation.Country,
			observation.Year,
			observation.Value,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM series_cache_rows
		WHERE cache_key IN (SELECT cache_key FROM series_cache WHERE expires_at <= ?)
	`, now.UnixNano()); err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM series_cache WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) SaveRun(ctx context.Context, run model.Run, assessments []model.Assessment) (err error) {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("sqlite: run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, focal_iso3, goal, countries, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Source),
		run.Focal,
		run.Goal,
		strings.Join(run.Countries, ","),
		run.StartedAt.UnixNano(),
		run.CompletedAt.UnixNano(),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assessments (
			run_id, goal, indicator, label, country_iso3,
			baseline_year, baseline_value, latest_year, latest_value,
			delta, status, ratio
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, indicator, country_iso3) DO UPDATE SET
			status = excluded.status,
			ratio = excluded.ratio
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assessments {
		if _, err = stmt.ExecContext(ctx,
			run.ID,
			a.Goal,
			a.Indicator,
			a.Label,
			a.CountryISO3,
			nullableInt(a.BaselineYear),
			nullableFloat(a.BaselineValue),
			nullableInt(a.LatestYear),
			nullableFloat(a.LatestValue),
			nullableFloat(a.Delta),
			a.Status,
			nullableFloat(a.Ratio),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) LatestRun(ctx context.Context, source model.Source, focal string, goal int) (model.Run, []model.Assessment, error) {
	query := `
		SELECT run_id, source, focal_iso3, goal, countries, started_at, completed_at
		FROM runs
		WHERE source = ? AND focal_iso3 = ?
	`
	args := []any{string(source), focal}
	if goal > 0 {
		query += " AND goal = ?"
		args = append(args, goal)
	}
	query += " ORDER BY completed_at DESC LIMIT 1"

	var run model.Run
	var runSource, countries string
	var startedAt, completedAt int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ID, &runSource, &run.Focal, &run.Goal, &countries, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, nil, store.ErrNoRun
	}
	if err != nil {
		return model.Run{}, nil, err
	}
	run.Source = model.Source(runSource)
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.CompletedAt = time.Unix(0, completedAt).UTC()
	if countries != "" {
		run.Countries = strings.Split(countries, ",")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT goal, indicator, label, country_iso3,
			baseline_year, baseline_value, latest_year, latest_value,
			delta, status, ratio
		FROM assessments
		WHERE run_id = ?
		ORDER BY rowid
	`, run.ID)
	if err != nil {
		return model.Run{}, nil, err
	}
	defer rows.Close()

	assessments := make([]model.Assessment, 0)
	for rows.Next() {
		var a model.Assessment
		var baselineYear, latestYear sql.NullInt64
		var baselineValue, latestValue, delta, ratio sql.NullFloat64
		if err := rows.Scan(
			&a.Goal, &a.Indicator, &a.Label, &a.CountryISO3,
			&baselineYear, &baselineValue, &latestYear, &latestValue,
			&delta, &a.Status, &ratio,
		); err != nil {
			return model.Run{}, nil, err
		}
		a.RunID = run.ID
		a.BaselineYear = intPtr(baselineYear)
		a.BaselineValue = floatPtr(baselineValue)
		a.LatestYear = intPtr(latestYear)
		a.LatestValue = floatPtr(latestValue)
		a.Delta = floatPtr(delta)
		a.Ratio = floatPtr(ratio)
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return model.Run{}, nil, err
	}
	return run, assessments, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS series_cache (
			cache_key TEXT PRIMARY KEY,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS series_cache_rows (
			cache_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			indicator TEXT NOT NULL,
			country_iso3 TEXT NOT NULL,
			country TEXT NOT NULL,
			year INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (cache_key, position)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			focal_iso3 TEXT NOT NULL,
			goal INTEGER NOT NULL,
			countries TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assessments (
			run_id TEXT NOT NULL,
			goal INTEGER NOT NULL,
			indicator TEXT NOT NULL,
			label TEXT NOT NULL,
			country_iso3 TEXT NOT NULL,
			baseline_year INTEGER,
			baseline_value REAL,
			latest_year INTEGER,
			latest_value REAL,
			delta REAL,
			status TEXT NOT NULL,
			ratio REAL,
			PRIMARY KEY (run_id, indicator, country_iso3),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_lookup ON runs(source, focal_iso3, goal, completed_at);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.Int(int(v.Int64))
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}

var _ store.Store = (*Store)(nil)
