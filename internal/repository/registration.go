package repository

import (
	"context"
	"database/sql"

	"grappling-rank/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type RegistrationRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRegistrationRepository(sqlDB *sql.DB, logger zerolog.Logger) *RegistrationRepository {
	return &RegistrationRepository{db: sqlDB, logger: logger}
}

// CompetitorsForDivision lists the imported registrations for an upcoming
// division of an event, the bracket projector's input.
func (r *RegistrationRepository) CompetitorsForDivision(ctx context.Context, eventID, divisionID uuid.UUID) ([]domain.Competitor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.registration_link_id, c.division_id, COALESCE(c.athlete_id, ''), c.name, COALESCE(c.team, ''), COALESCE(c.seed, 0)
		FROM competitors c
		JOIN registration_links rl ON rl.id = c.registration_link_id
		WHERE rl.event_id = ? AND c.division_id = ?
		ORDER BY c.seed, c.name`, eventID, divisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var competitors []domain.Competitor
	for rows.Next() {
		var c domain.Competitor
		var athleteID string
		if err := rows.Scan(&c.ID, &c.RegistrationLinkID, &c.DivisionID, &athleteID, &c.Name, &c.Team, &c.Seed); err != nil {
			return nil, err
		}
		if athleteID != "" {
			c.AthleteID, _ = uuid.Parse(athleteID)
		}
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

// Division loads a division row by id.
func (r *RegistrationRepository) Division(ctx context.Context, id uuid.UUID) (*domain.Division, error) {
	var d domain.Division
	var discipline, gender, age, belt, weight string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, discipline, gender, age, belt, weight FROM divisions WHERE id = ?`, id).
		Scan(&d.ID, &discipline, &gender, &age, &belt, &weight)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Discipline = domain.Discipline(discipline)
	d.Gender = domain.Gender(gender)
	d.Age = domain.Age(age)
	d.Belt = domain.Belt(belt)
	d.Weight = domain.Weight(weight)
	return &d, nil
}
