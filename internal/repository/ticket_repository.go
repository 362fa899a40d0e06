package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-monitor/internal/domain"
	apperrors "github.com/spec-kit/sla-monitor/pkg/util"
)

// SLAFieldsUpdate is a compare-and-swap write of a ticket's SLA fields. The
// previous clock states guard the update: if a concurrent pass advanced the
// ticket first, the write matches no row and ErrStateConflict is returned.
type SLAFieldsUpdate struct {
	TicketID            int64
	RuleID              *int64
	ResponseDue         *time.Time
	ResolutionDue       *time.Time
	ResponseState       domain.ClockState
	ResolutionState     domain.ClockState
	PrevResponseState   domain.ClockState
	PrevResolutionState domain.ClockState
}

// TicketStore is the monitor's narrow view of ticket persistence. The
// monitor is the sole writer of sla_* columns; everything else belongs to
// the surrounding ticket system.
type TicketStore interface {
	FindMonitorable(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateSLAFields(ctx context.Context, update SLAFieldsUpdate) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketStore {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        id, number, entity_id, priority, status, assigned_to,
        created_at, first_response_at, resolved_at,
        sla_rule_id, sla_response_due, sla_resolution_due,
        sla_response_state, sla_resolution_state`

// FindMonitorable returns open tickets that either already carry SLA due
// dates or have at least one matching active rule, ordered priority
// descending then created_at ascending.
func (r *ticketRepository) FindMonitorable(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT` + ticketColumns + `
        FROM tickets t
        WHERE t.status NOT IN ('closed', 'resolved', 'cancelled')
        AND (
            t.sla_response_due IS NOT NULL
            OR t.sla_resolution_due IS NOT NULL
            OR EXISTS (
                SELECT 1 FROM sla_rules r
                WHERE r.is_active
                AND (r.entity_id IS NULL OR r.entity_id = t.entity_id)
                AND (r.priority IS NULL OR r.priority = t.priority)
            )
        )
        ORDER BY CASE t.priority
            WHEN 'urgent' THEN 4
            WHEN 'high' THEN 3
            WHEN 'normal' THEN 2
            ELSE 1
        END DESC, t.created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT` + ticketColumns + ` FROM tickets t WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.EntityID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.SLA.RuleID,
		&ticket.SLA.ResponseDue,
		&ticket.SLA.ResolutionDue,
		&ticket.SLA.ResponseState,
		&ticket.SLA.ResolutionState,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateSLAFields(ctx context.Context, update SLAFieldsUpdate) error {
	const query = `
        UPDATE tickets SET sla_rule_id=$1, sla_response_due=$2, sla_resolution_due=$3,
            sla_response_state=$4, sla_resolution_state=$5, updated_at=NOW()
        WHERE id=$6 AND sla_response_state=$7 AND sla_resolution_state=$8`

	cmd, err := r.pool.Exec(ctx, query,
		update.RuleID,
		update.ResponseDue,
		update.ResolutionDue,
		update.ResponseState,
		update.ResolutionState,
		update.TicketID,
		update.PrevResponseState,
		update.PrevResolutionState,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		exists, err := r.exists(ctx, update.TicketID)
		if err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return apperrors.ErrStateConflict
	}
	return nil
}

func (r *ticketRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.EntityID,
			&ticket.Priority,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.SLA.RuleID,
			&ticket.SLA.ResponseDue,
			&ticket.SLA.ResolutionDue,
			&ticket.SLA.ResponseState,
			&ticket.SLA.ResolutionState,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
