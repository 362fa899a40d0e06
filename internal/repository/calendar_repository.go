package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// CalendarStore loads business-hours configuration.
type CalendarStore interface {
	FindActiveHours(ctx context.Context, entityID int64) ([]domain.BusinessHours, error)
}

type calendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository instantiates repository.
func NewCalendarRepository(pool *pgxpool.Pool) CalendarStore {
	return &calendarRepository{pool: pool}
}

// FindActiveHours returns the entity's active windows, falling back to the
// global rows (entity_id IS NULL) when the entity has none of its own. An
// empty result means the entity runs 24/7.
func (r *calendarRepository) FindActiveHours(ctx context.Context, entityID int64) ([]domain.BusinessHours, error) {
	const query = `
        SELECT id, entity_id, weekday, start_minutes, end_minutes, is_active
        FROM business_hours
        WHERE is_active AND (entity_id = $1 OR entity_id IS NULL)
        ORDER BY entity_id NULLS LAST, weekday ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entitySpecific, global []domain.BusinessHours
	for rows.Next() {
		var h domain.BusinessHours
		var weekday int16
		if err := rows.Scan(&h.ID, &h.EntityID, &weekday, &h.StartMinutes, &h.EndMinutes, &h.IsActive); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(weekday)
		if h.EntityID != nil {
			entitySpecific = append(entitySpecific, h)
		} else {
			global = append(global, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entitySpecific) > 0 {
		return entitySpecific, nil
	}
	return global, nil
}
