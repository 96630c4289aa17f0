package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grappling-rank/internal/domain"
	"grappling-rank/internal/rating"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

// MatchRow is a match plus its division, as streamed by the recompute
// pipeline.
type MatchRow struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	HappenedAt      time.Time
	Rated           bool
	RatedWinnerOnly bool
	Division        domain.Division
}

// Scope filters the recompute stream. Discipline is required; everything
// else narrows.
type Scope struct {
	Discipline domain.Discipline
	Gender     domain.Gender
	StartDate  *time.Time
	AthleteID  uuid.UUID
	YouthOnly  bool
}

// ListForRecompute returns matches in scope in (happened_at, id) order,
// the total order that makes the pipeline deterministic.
func (r *MatchRepository) ListForRecompute(ctx context.Context, scope Scope) ([]MatchRow, error) {
	query := `
		SELECT m.id, m.event_id, m.happened_at, m.rated, m.rated_winner_only,
		       d.id, d.discipline, d.gender, d.age, d.belt, d.weight
		FROM matches m
		JOIN divisions d ON d.id = m.division_id
		WHERE d.discipline = ?`
	args := []any{string(scope.Discipline)}

	if scope.Gender != "" {
		query += ` AND d.gender = ?`
		args = append(args, string(scope.Gender))
	}
	if scope.StartDate != nil {
		query += ` AND m.happened_at >= ?`
		args = append(args, *scope.StartDate)
	}
	if scope.YouthOnly {
		query += ` AND d.age IN ('youth', 'juvenile')`
	}
	if scope.AthleteID != uuid.Nil {
		query += ` AND EXISTS (SELECT 1 FROM match_participants mp WHERE mp.match_id = m.id AND mp.athlete_id = ?)`
		args = append(args, scope.AthleteID)
	}
	query += ` ORDER BY m.happened_at ASC, m.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []MatchRow
	for rows.Next() {
		m, err := scanMatchRow(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func scanMatchRow(rows *sql.Rows) (MatchRow, error) {
	var m MatchRow
	var discipline, gender, age, belt, weight string
	err := rows.Scan(&m.ID, &m.EventID, &m.HappenedAt, &m.Rated, &m.RatedWinnerOnly,
		&m.Division.ID, &discipline, &gender, &age, &belt, &weight)
	if err != nil {
		return MatchRow{}, err
	}

	if m.Division.Discipline, err = domain.ParseDiscipline(discipline); err != nil {
		return MatchRow{}, fmt.Errorf("match %s: %w", m.ID, err)
	}
	if m.Division.Gender, err = domain.ParseGender(gender); err != nil {
		return MatchRow{}, fmt.Errorf("match %s: %w", m.ID, err)
	}
	if m.Division.Age, err = domain.ParseAge(age); err != nil {
		return MatchRow{}, fmt.Errorf("match %s: %w", m.ID, err)
	}
	if m.Division.Belt, err = domain.ParseBelt(belt); err != nil {
		return MatchRow{}, fmt.Errorf("match %s: %w", m.ID, err)
	}
	if m.Division.Weight, err = domain.ParseWeight(weight); err != nil {
		return MatchRow{}, fmt.Errorf("match %s: %w", m.ID, err)
	}
	return m, nil
}

// ParticipantsByMatch returns the participants red-first.
func (r *MatchRepository) ParticipantsByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.MatchParticipant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, match_id, athlete_id, COALESCE(team_id, ''), red, COALESCE(seed, 0), winner,
		       note, rating_note, start_rating, end_rating, start_match_count, end_match_count, weight_for_open
		FROM match_participants
		WHERE match_id = ?
		ORDER BY red DESC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.MatchParticipant
	for rows.Next() {
		var p domain.MatchParticipant
		var teamID, weightForOpen string
		err := rows.Scan(&p.ID, &p.MatchID, &p.AthleteID, &teamID, &p.Red, &p.Seed, &p.Winner,
			&p.Note, &p.RatingNote, &p.StartRating, &p.EndRating, &p.StartMatchCount, &p.EndMatchCount, &weightForOpen)
		if err != nil {
			return nil, err
		}
		if teamID != "" {
			p.TeamID, _ = uuid.Parse(teamID)
		}
		p.WeightForOpen = domain.Weight(weightForOpen)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// LastParticipant returns the most recent prior participation of the
// athlete in the discipline+gender, strictly before (before, beforeID) in
// the (happened_at, id) order. minAgeRank restricts to divisions at or
// above that age rank; pass -1 for no restriction. Nil when none.
func (r *MatchRepository) LastParticipant(ctx context.Context, athleteID uuid.UUID, discipline domain.Discipline, gender domain.Gender, before time.Time, beforeID uuid.UUID, minAgeRank int) (*rating.PriorMatch, error) {
	query := `
		SELECT mp.end_rating, mp.end_match_count, d.belt, d.age
		FROM match_participants mp
		JOIN matches m ON m.id = mp.match_id
		JOIN divisions d ON d.id = m.division_id
		WHERE mp.athlete_id = ? AND d.discipline = ? AND d.gender = ?
		  AND (m.happened_at < ? OR (m.happened_at = ? AND m.id < ?))`
	args := []any{athleteID, string(discipline), string(gender), before, before, beforeID}

	if minAgeRank >= 0 {
		query += ` AND d.age_rank >= ?`
		args = append(args, minAgeRank)
	}
	query += ` ORDER BY m.happened_at DESC, m.id DESC LIMIT 1`

	var prior rating.PriorMatch
	var belt, age string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&prior.EndRating, &prior.EndMatchCount, &belt, &age)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prior.Belt, err = domain.ParseBelt(belt); err != nil {
		return nil, err
	}
	if prior.Age, err = domain.ParseAge(age); err != nil {
		return nil, err
	}
	return &prior, nil
}

// RatedCountInWindow counts the athlete's rated matches in
// [since, before) for the K-factor maturity ladder.
func (r *MatchRepository) RatedCountInWindow(ctx context.Context, athleteID uuid.UUID, discipline domain.Discipline, gender domain.Gender, since, before time.Time, beforeID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM match_participants mp
		JOIN matches m ON m.id = mp.match_id
		JOIN divisions d ON d.id = m.division_id
		WHERE mp.athlete_id = ? AND d.discipline = ? AND d.gender = ? AND m.rated = 1
		  AND m.happened_at >= ?
		  AND (m.happened_at < ? OR (m.happened_at = ? AND m.id < ?))`,
		athleteID, string(discipline), string(gender), since, before, before, beforeID).Scan(&count)
	return count, err
}

// LastKnownWeight is the athlete's presumed weight class at match time:
// the most recent non-open match weight or default-gold medal weight,
// counting records strictly earlier or belonging to the same event. Ties
// on timestamp go to the match record. Empty when unknown.
func (r *MatchRepository) LastKnownWeight(ctx context.Context, athleteID uuid.UUID, discipline domain.Discipline, gender domain.Gender, before time.Time, matchID, eventID uuid.UUID) (domain.Weight, error) {
	var matchWeight string
	var matchAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT d.weight, m.happened_at
		FROM match_participants mp
		JOIN matches m ON m.id = mp.match_id
		JOIN divisions d ON d.id = m.division_id
		WHERE mp.athlete_id = ? AND d.discipline = ? AND d.gender = ?
		  AND d.weight NOT IN ('open', 'open-light', 'open-heavy')
		  AND m.id <> ?
		  AND (m.happened_at < ? OR m.event_id = ?)
		ORDER BY m.happened_at DESC, m.id DESC LIMIT 1`,
		athleteID, string(discipline), string(gender), matchID, before, eventID).Scan(&matchWeight, &matchAt)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}
	haveMatch := err == nil

	var medalWeight string
	var medalAt time.Time
	err = r.db.QueryRowContext(ctx, `
		SELECT d.weight, md.awarded_at
		FROM medals md
		JOIN divisions d ON d.id = md.division_id
		WHERE md.athlete_id = ? AND md.default_gold = 1 AND d.discipline = ? AND d.gender = ?
		  AND d.weight NOT IN ('open', 'open-light', 'open-heavy')
		  AND (md.awarded_at < ? OR md.event_id = ?)
		ORDER BY md.awarded_at DESC LIMIT 1`,
		athleteID, string(discipline), string(gender), before, eventID).Scan(&medalWeight, &medalAt)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}
	haveMedal := err == nil

	switch {
	case haveMatch && haveMedal:
		if medalAt.After(matchAt) {
			return domain.Weight(medalWeight), nil
		}
		return domain.Weight(matchWeight), nil
	case haveMatch:
		return domain.Weight(matchWeight), nil
	case haveMedal:
		return domain.Weight(medalWeight), nil
	}
	return "", nil
}

// LastParticipantTime is the timestamp of the athlete's latest persisted
// participation in the discipline, zero when none. Used by the live
// projector to decide whether a projected rating is news.
func (r *MatchRepository) LastParticipantTime(ctx context.Context, athleteID uuid.UUID, discipline domain.Discipline) (time.Time, error) {
	var at time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT m.happened_at
		FROM match_participants mp
		JOIN matches m ON m.id = mp.match_id
		JOIN divisions d ON d.id = m.division_id
		WHERE mp.athlete_id = ? AND d.discipline = ?
		ORDER BY m.happened_at DESC, m.id DESC LIMIT 1`,
		athleteID, string(discipline)).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return at, err
}

// ParticipantUpdate is one side's recomputed fields.
type ParticipantUpdate struct {
	Red             bool
	StartRating     float64
	EndRating       float64
	StartMatchCount int
	EndMatchCount   int
	WeightForOpen   domain.Weight
	RatingNote      string
}

// ApplyDecision writes the recomputed fields for one match in a single
// transaction. Nil side updates and a nil rated flag are skipped, which is
// how the athlete-scoped recompute leaves the other side untouched.
func (r *MatchRepository) ApplyDecision(ctx context.Context, matchID uuid.UUID, rated *bool, red, blue *ParticipantUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, update := range []*ParticipantUpdate{red, blue} {
		if update == nil {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE match_participants
			SET start_rating = ?, end_rating = ?, start_match_count = ?, end_match_count = ?,
			    weight_for_open = ?, rating_note = ?, updated_at = ?
			WHERE match_id = ? AND red = ?`,
			update.StartRating, update.EndRating, update.StartMatchCount, update.EndMatchCount,
			string(update.WeightForOpen), update.RatingNote, now, matchID, update.Red)
		if err != nil {
			return fmt.Errorf("failed to update participant for match %s: %w", matchID, err)
		}
	}

	if rated != nil {
		_, err := tx.ExecContext(ctx, `UPDATE matches SET rated = ?, updated_at = ? WHERE id = ?`, *rated, now, matchID)
		if err != nil {
			return fmt.Errorf("failed to update match %s: %w", matchID, err)
		}
	}

	return tx.Commit()
}
