package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// RunStore persists accumulated monitoring counters. A single row holds the
// running totals; deltas from each pass are added in.
type RunStore interface {
	Accumulate(ctx context.Context, delta domain.MonitoringRun) error
	Latest(ctx context.Context) (*domain.MonitoringRun, error)
}

// Counters live in one well-known row.
const monitoringRunRowID = 1

type runRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository instantiates repository.
func NewRunRepository(pool *pgxpool.Pool) RunStore {
	return &runRepository{pool: pool}
}

func (r *runRepository) Accumulate(ctx context.Context, delta domain.MonitoringRun) error {
	const query = `
        INSERT INTO sla_monitoring_runs
            (id, total_processed, total_warnings, total_breaches, total_escalations, total_failures, last_check)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            total_processed   = sla_monitoring_runs.total_processed + EXCLUDED.total_processed,
            total_warnings    = sla_monitoring_runs.total_warnings + EXCLUDED.total_warnings,
            total_breaches    = sla_monitoring_runs.total_breaches + EXCLUDED.total_breaches,
            total_escalations = sla_monitoring_runs.total_escalations + EXCLUDED.total_escalations,
            total_failures    = sla_monitoring_runs.total_failures + EXCLUDED.total_failures,
            last_check        = EXCLUDED.last_check`

	_, err := r.pool.Exec(ctx, query,
		monitoringRunRowID,
		delta.Processed,
		delta.Warnings,
		delta.Breaches,
		delta.Escalations,
		delta.Failures,
		delta.LastCheck,
	)
	return err
}

func (r *runRepository) Latest(ctx context.Context) (*domain.MonitoringRun, error) {
	const query = `
        SELECT total_processed, total_warnings, total_breaches, total_escalations, total_failures, last_check
        FROM sla_monitoring_runs WHERE id=$1`

	var run domain.MonitoringRun
	err := r.pool.QueryRow(ctx, query, monitoringRunRowID).Scan(
		&run.Processed,
		&run.Warnings,
		&run.Breaches,
		&run.Escalations,
		&run.Failures,
		&run.LastCheck,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.MonitoringRun{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
