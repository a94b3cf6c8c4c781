package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/incident-push/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) ListActive(ctx context.Context) ([]*domain.Subscriber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, device_id, platform, push_address, active,
		       region_ids, county_ids, category_ids, only_ongoing, created_at
		FROM subscribers
		WHERE active = true
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(
			&s.ID, &s.DeviceID, &s.Platform, &s.PushAddress, &s.Active,
			&s.RegionIDs, &s.CountyIDs, &s.CategoryIDs, &s.OnlyOngoing, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, &s)
	}
	return subscribers, rows.Err()
}

var _ SubscriberRepository = (*pgSubscriberRepository)(nil)
