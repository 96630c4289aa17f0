package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grappling-rank/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type LiveRatingRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewLiveRatingRepository(sqlDB *sql.DB, logger zerolog.Logger) *LiveRatingRepository {
	return &LiveRatingRepository{db: sqlDB, logger: logger}
}

// Upsert writes one live rating keyed by (athlete, discipline, division).
func (r *LiveRatingRepository) Upsert(ctx context.Context, lr *domain.LiveRating) error {
	if lr.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		lr.ID = id
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO live_ratings (id, athlete_id, discipline, division_id, end_rating, end_match_count, happened_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (athlete_id, discipline, division_id) DO UPDATE SET
		    end_rating = excluded.end_rating,
		    end_match_count = excluded.end_match_count,
		    happened_at = excluded.happened_at,
		    updated_at = excluded.updated_at`,
		lr.ID, lr.AthleteID, string(lr.Discipline), lr.DivisionID,
		lr.EndRating, lr.EndMatchCount, lr.HappenedAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert live rating: %w", err)
	}
	return nil
}

// DeleteExpired removes live ratings created before the cutoff.
func (r *LiveRatingRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM live_ratings WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired live ratings: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("expired live ratings removed")
	}
	return deleted, nil
}
