package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/jackc/pgx/v5/pgtype"
)

// EnsureSchema creates the results table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS map_health_checks (
			run_id      TEXT PRIMARY KEY,
			target_url  TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			stage       TEXT NOT NULL,
			failed_at   TEXT NOT NULL DEFAULT '',
			outcome     TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			latency_ms  BIGINT NOT NULL,
			latitude    DOUBLE PRECISION,
			drift       DOUBLE PRECISION,
			popup_text  TEXT NOT NULL DEFAULT '',
			message     TEXT NOT NULL DEFAULT ''
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create map_health_checks table: %w", err)
	}

	return nil
}

// SaveResult stores one finished check run. Latitude and drift are stored as
// NULL when the popup text could not be parsed.
func (r *Repository) SaveResult(ctx context.Context, result models.CheckResult) error {
	query := `
		INSERT INTO map_health_checks (
			run_id, target_url, started_at, finished_at, stage, failed_at,
			outcome, reason, latency_ms, latitude, drift, popup_text, message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`

	var latitude, drift pgtype.Float8
	if result.LatitudeParsed {
		latitude = pgtype.Float8{Float64: result.Latitude, Valid: true}
		drift = pgtype.Float8{Float64: result.Drift, Valid: true}
	}

	_, err := r.db.Exec(ctx, query,
		result.ID,
		result.TargetURL,
		result.StartedAt,
		result.FinishedAt,
		string(result.Stage),
		string(result.FailedAt),
		string(result.Outcome),
		string(result.Reason),
		result.Latency.Milliseconds(),
		latitude,
		drift,
		result.PopupText,
		result.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to save check result: %w", err)
	}

	r.log.DebugContext(ctx, "Check result saved", "run", result.ID, "outcome", result.Outcome)

	return nil
}

// RecentResults returns the latest runs, newest first.
func (r *Repository) RecentResults(ctx context.Context, limit int) ([]models.CheckResult, error) {
	var results []models.CheckResult
	query := `
		SELECT run_id, target_url, started_at, finished_at, stage, failed_at,
			outcome, reason, latency_ms, latitude, drift, popup_text, message
		FROM map_health_checks
		ORDER BY started_at DESC
		LIMIT $1;
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent check results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			result                           models.CheckResult
			stage, failedAt, outcome, reason string
			latencyMS                        int64
			latitude, drift                  pgtype.Float8
		)
		errScan := rows.Scan(
			&result.ID, &result.TargetURL, &result.StartedAt, &result.FinishedAt, &stage, &failedAt,
			&outcome, &reason, &latencyMS, &latitude, &drift, &result.PopupText, &result.Message,
		)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", errScan)
		}

		result.Stage = models.Stage(stage)
		result.FailedAt = models.Stage(failedAt)
		result.Outcome = models.Outcome(outcome)
		result.Reason = models.FailureReason(reason)
		result.Latency = time.Duration(latencyMS) * time.Millisecond
		if latitude.Valid && drift.Valid {
			result.Latitude, result.Drift, result.LatitudeParsed = latitude.Float64, drift.Float64, true
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return results, nil
}
