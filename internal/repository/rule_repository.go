package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// RuleStore loads SLA rule configuration.
type RuleStore interface {
	FindActiveRules(ctx context.Context) ([]domain.SlaRule, error)
	GetByID(ctx context.Context, id int64) (*domain.SlaRule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleStore {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `
        id, name, entity_id, priority, response_time_hours,
        resolution_time_hours, escalation_time_hours,
        business_hours_only, is_active, created_at`

func (r *ruleRepository) FindActiveRules(ctx context.Context) ([]domain.SlaRule, error) {
	const query = `
        SELECT` + ruleColumns + `
        FROM sla_rules
        WHERE is_active
        ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaRule
	for rows.Next() {
		var rule domain.SlaRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.EntityID,
			&rule.Priority,
			&rule.ResponseTimeHours,
			&rule.ResolutionTimeHours,
			&rule.EscalationTimeHours,
			&rule.BusinessHoursOnly,
			&rule.IsActive,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *ruleRepository) GetByID(ctx context.Context, id int64) (*domain.SlaRule, error) {
	const query = `SELECT` + ruleColumns + ` FROM sla_rules WHERE id=$1`

	var rule domain.SlaRule
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.Name,
		&rule.EntityID,
		&rule.Priority,
		&rule.ResponseTimeHours,
		&rule.ResolutionTimeHours,
		&rule.EscalationTimeHours,
		&rule.BusinessHoursOnly,
		&rule.IsActive,
		&rule.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}
