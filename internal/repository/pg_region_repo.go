package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRegionRepository struct {
	pool *pgxpool.Pool
}

// NewPgRegionRepository returns a RegionRepository backed by PostgreSQL.
func NewPgRegionRepository(pool *pgxpool.Pool) RegionRepository {
	return &pgRegionRepository{pool: pool}
}

func (r *pgRegionRepository) RegionsByFireDept(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, region_id FROM fire_departments`)
	if err != nil {
		return nil, fmt.Errorf("load fire department regions: %w", err)
	}
	defer rows.Close()

	regions := make(map[string]string)
	for rows.Next() {
		var deptID, regionID string
		if err := rows.Scan(&deptID, &regionID); err != nil {
			return nil, fmt.Errorf("scan fire department: %w", err)
		}
		regions[deptID] = regionID
	}
	return regions, rows.Err()
}

var _ RegionRepository = (*pgRegionRepository)(nil)
