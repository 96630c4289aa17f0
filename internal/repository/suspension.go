package repository

import (
	"context"
	"database/sql"

	"grappling-rank/internal/domain"

	"github.com/rs/zerolog"
)

type SuspensionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSuspensionRepository(sqlDB *sql.DB, logger zerolog.Logger) *SuspensionRepository {
	return &SuspensionRepository{db: sqlDB, logger: logger}
}

func (r *SuspensionRepository) List(ctx context.Context) ([]domain.Suspension, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, athlete_name, start_date, end_date FROM suspensions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suspensions []domain.Suspension
	for rows.Next() {
		var s domain.Suspension
		if err := rows.Scan(&s.ID, &s.AthleteName, &s.StartDate, &s.EndDate); err != nil {
			return nil, err
		}
		suspensions = append(suspensions, s)
	}
	return suspensions, rows.Err()
}
