package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/incident-push/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) FetchUnprocessed(ctx context.Context, limit int) ([]QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.incident_id, q.event_type, q.payload, q.processed, q.created_at,
		       i.title, i.fire_dept_id, i.county_id, i.category_id, i.status
		FROM notification_queue q
		JOIN incidents i ON i.id = q.incident_id
		WHERE q.processed = false
		ORDER BY q.created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed queue items: %w", err)
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		var (
			item    domain.QueueItem
			inc     domain.IncidentRef
			payload []byte
		)
		if err := rows.Scan(
			&item.ID, &item.IncidentID, &item.EventType, &payload, &item.Processed, &item.CreatedAt,
			&inc.Title, &inc.FireDeptID, &inc.CountyID, &inc.CategoryID, &inc.Status,
		); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		inc.ID = item.IncidentID
		if err := decodePayload(&item, payload); err != nil {
			return nil, fmt.Errorf("decode payload of item %s: %w", item.ID, err)
		}
		entries = append(entries, QueueEntry{Item: &item, Incident: inc})
	}
	return entries, rows.Err()
}

// decodePayload unmarshals the JSONB payload column into the variant
// selected by the event type. Unknown event types leave every variant nil;
// the renderer handles that with its fallback text.
func decodePayload(item *domain.QueueItem, payload []byte) error {
	switch item.EventType {
	case domain.EventNewIncident:
		item.NewIncident = &domain.NewIncidentPayload{}
		return json.Unmarshal(payload, item.NewIncident)
	case domain.EventUpdate:
		item.Update = &domain.UpdatePayload{}
		return json.Unmarshal(payload, item.Update)
	case domain.EventStatusChange:
		item.StatusChange = &domain.StatusChangePayload{}
		return json.Unmarshal(payload, item.StatusChange)
	}
	return nil
}

func (r *pgQueueRepository) MarkProcessed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_queue SET processed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) CountUnprocessed(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_queue WHERE processed = false`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return n, nil
}

var _ QueueRepository = (*pgQueueRepository)(nil)
