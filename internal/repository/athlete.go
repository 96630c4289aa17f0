package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grappling-rank/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AthleteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAthleteRepository(sqlDB *sql.DB, logger zerolog.Logger) *AthleteRepository {
	return &AthleteRepository{db: sqlDB, logger: logger}
}

func (r *AthleteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Athlete, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(source_id, ''), name, normalized_name, slug,
		       COALESCE(personal_name, ''), COALESCE(country, ''), COALESCE(country_note, ''),
		       created_at, updated_at
		FROM athletes WHERE id = ?`, id)

	var a domain.Athlete
	err := row.Scan(&a.ID, &a.SourceID, &a.Name, &a.NormalizedName, &a.Slug,
		&a.PersonalName, &a.Country, &a.CountryNote, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IDByNormalizedName resolves a free-text name (already normalized) to an
// athlete. Used to attach suspensions to athletes.
func (r *AthleteRepository) IDByNormalizedName(ctx context.Context, normalized string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM athletes WHERE normalized_name = ? LIMIT 1`, normalized).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Create inserts an athlete, assigning a unique url slug from the
// normalized name.
func (r *AthleteRepository) Create(ctx context.Context, a *domain.Athlete) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.NormalizedName == "" {
		a.NormalizedName = domain.NormalizeName(a.Name)
	}

	slug, err := r.uniqueSlug(ctx, a.NormalizedName)
	if err != nil {
		return fmt.Errorf("failed to assign slug: %w", err)
	}
	a.Slug = slug

	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO athletes (id, source_id, name, normalized_name, slug, personal_name, country, country_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SourceID, a.Name, a.NormalizedName, a.Slug, a.PersonalName, a.Country, a.CountryNote, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert athlete %s: %w", a.Name, err)
	}
	return nil
}

// uniqueSlug walks the candidate list (first-last, then with middle names)
// and falls back to a numbered suffix when everything collides.
func (r *AthleteRepository) uniqueSlug(ctx context.Context, normalized string) (string, error) {
	candidates := domain.SlugCandidates(normalized)
	if len(candidates) == 0 {
		return "", fmt.Errorf("name %q produced no slug", normalized)
	}

	for _, candidate := range candidates {
		taken, err := r.slugTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	base := candidates[0]
	for n := 2; ; n++ {
		candidate := domain.NumberedSlug(base, n)
		taken, err := r.slugTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func (r *AthleteRepository) slugTaken(ctx context.Context, slug string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM athletes WHERE slug = ?)`, slug).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// ManualBeltAsOf returns the highest administratively granted belt at the
// given date, empty when none.
func (r *AthleteRepository) ManualBeltAsOf(ctx context.Context, athleteID uuid.UUID, at time.Time) (domain.Belt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT belt FROM manual_promotions WHERE athlete_id = ? AND promoted_at <= ?`, athleteID, at)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var best domain.Belt
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return "", err
		}
		belt, err := domain.ParseBelt(raw)
		if err != nil {
			r.logger.Warn().Str("athlete_id", athleteID.String()).Str("belt", raw).Msg("skipping manual promotion with unknown belt")
			continue
		}
		if best == "" || belt.Rank() > best.Rank() {
			best = belt
		}
	}
	return best, rows.Err()
}
