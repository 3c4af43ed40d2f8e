package repository

import (
	"context"

	"rtm-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles the append-only case event log
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Append records an event for a case
func (r *EventRepository) Append(ctx context.Context, caseID uuid.UUID, eventType string, payload models.EventPayload) error {
	query := `
		INSERT INTO events (case_id, type, payload)
		VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, caseID, eventType, payload)
	return err
}

// ListByCase retrieves all events for a case in chronological order
func (r *EventRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Event, error) {
	query := `
		SELECT id, case_id, type, payload, created_at
		FROM events
		WHERE case_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e := &models.Event{}
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
