package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grappling-rank/internal/constants"
	"grappling-rank/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BoardRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBoardRepository(sqlDB *sql.DB, logger zerolog.Logger) *BoardRepository {
	return &BoardRepository{db: sqlDB, logger: logger}
}

// BoardRow is one computed ranking-board row before percentile assignment.
type BoardRow struct {
	AthleteID     uuid.UUID
	Gender        domain.Gender
	Age           domain.Age
	Belt          domain.Belt
	Weight        domain.Weight
	Rating        float64
	MatchCount    int
	HappenedAt    time.Time
	Rank          int
	PartitionSize int
}

// Snapshot is the previous-period state of a board row, keyed by partition.
type Snapshot struct {
	Rating     float64
	Rank       int
	MatchCount int
	Percentile float64
}

// SnapshotKey identifies a board partition row for previous-period lookups.
func SnapshotKey(athleteID uuid.UUID, gender domain.Gender, age domain.Age, belt domain.Belt, weight domain.Weight) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", athleteID, gender, age, belt, weight)
}

// Compute materializes the board for one discipline from the committed
// match stream, considering only matches up to cutoff. The staged
// transform: max belt per athlete, qualifying weights (wins, or losses
// with no win elsewhere, plus the pound-for-pound row), most recent end
// rating per partition, competition rank on the rounded rating.
func (r *BoardRepository) Compute(ctx context.Context, discipline domain.Discipline, cutoff time.Time) ([]BoardRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH rated_parts AS (
		    SELECT mp.athlete_id, mp.end_rating, mp.end_match_count, mp.winner,
		           m.id AS match_id, m.happened_at,
		           d.gender, d.age, d.belt, d.belt_rank, d.weight
		    FROM match_participants mp
		    JOIN matches m ON m.id = mp.match_id
		    JOIN divisions d ON d.id = m.division_id
		    WHERE m.rated = 1 AND d.discipline = ? AND m.happened_at <= ?
		),
		max_belt AS (
		    SELECT athlete_id, MAX(belt_rank) AS belt_rank
		    FROM rated_parts
		    GROUP BY athlete_id
		),
		at_max AS (
		    SELECT rp.*
		    FROM rated_parts rp
		    JOIN max_belt mb ON mb.athlete_id = rp.athlete_id AND mb.belt_rank = rp.belt_rank
		),
		won AS (
		    SELECT DISTINCT athlete_id, weight FROM at_max
		    WHERE winner = 1 AND weight NOT IN ('open', 'open-light', 'open-heavy')
		),
		lost AS (
		    SELECT DISTINCT athlete_id, weight FROM at_max
		    WHERE winner = 0 AND weight NOT IN ('open', 'open-light', 'open-heavy')
		),
		qualifying AS (
		    SELECT athlete_id, weight FROM won
		    UNION
		    SELECT l.athlete_id, l.weight FROM lost l
		    WHERE NOT EXISTS (
		        SELECT 1 FROM won w
		        WHERE w.athlete_id = l.athlete_id AND w.weight <> l.weight
		    )
		    UNION
		    SELECT DISTINCT athlete_id, '' FROM at_max
		),
		recent AS (
		    SELECT athlete_id, gender, age, belt, end_rating, end_match_count, happened_at,
		           ROW_NUMBER() OVER (
		               PARTITION BY athlete_id, gender, age, belt
		               ORDER BY happened_at DESC, match_id DESC
		           ) AS rn
		    FROM at_max
		),
		board AS (
		    SELECT rec.athlete_id, rec.gender, rec.age, rec.belt, q.weight,
		           rec.end_rating AS rating, rec.end_match_count AS match_count, rec.happened_at
		    FROM recent rec
		    JOIN qualifying q ON q.athlete_id = rec.athlete_id
		    WHERE rec.rn = 1
		)
		SELECT athlete_id, gender, age, belt, weight, rating, match_count, happened_at,
		       RANK() OVER (
		           PARTITION BY gender, age, belt, weight
		           ORDER BY CAST(ROUND(rating) AS INTEGER) DESC
		       ) AS rank,
		       COUNT(*) OVER (PARTITION BY gender, age, belt, weight) AS partition_size
		FROM board
		ORDER BY gender, age, belt, weight, rank, athlete_id`,
		string(discipline), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to compute board for %s: %w", discipline, err)
	}
	defer rows.Close()

	var board []BoardRow
	for rows.Next() {
		var row BoardRow
		var gender, age, belt, weight string
		err := rows.Scan(&row.AthleteID, &gender, &age, &belt, &weight,
			&row.Rating, &row.MatchCount, &row.HappenedAt, &row.Rank, &row.PartitionSize)
		if err != nil {
			return nil, err
		}
		row.Gender = domain.Gender(gender)
		row.Age = domain.Age(age)
		row.Belt = domain.Belt(belt)
		row.Weight = domain.Weight(weight)
		board = append(board, row)
	}
	return board, rows.Err()
}

// CurrentSnapshot reads the board rows about to be replaced, keyed by
// partition, so the new rows can carry the previous-period values.
func (r *BoardRepository) CurrentSnapshot(ctx context.Context, discipline domain.Discipline) (map[string]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT athlete_id, gender, age, belt, weight, rating, rank, match_count, percentile
		FROM athlete_ratings WHERE discipline = ?`, string(discipline))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make(map[string]Snapshot)
	for rows.Next() {
		var athleteID uuid.UUID
		var gender, age, belt, weight string
		var snap Snapshot
		err := rows.Scan(&athleteID, &gender, &age, &belt, &weight,
			&snap.Rating, &snap.Rank, &snap.MatchCount, &snap.Percentile)
		if err != nil {
			return nil, err
		}
		key := SnapshotKey(athleteID, domain.Gender(gender), domain.Age(age), domain.Belt(belt), domain.Weight(weight))
		snapshots[key] = snap
	}
	return snapshots, rows.Err()
}

// ReplaceDiscipline swaps the board for one discipline in a single
// transaction: readers see either the old set or the new set, never a
// mix. The averages table is refreshed from the new rows in the same
// transaction.
func (r *BoardRepository) ReplaceDiscipline(ctx context.Context, discipline domain.Discipline, ratings []domain.AthleteRating) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM athlete_ratings WHERE discipline = ?`, string(discipline)); err != nil {
		return fmt.Errorf("failed to clear ratings for %s: %w", discipline, err)
	}

	for i := 0; i < len(ratings); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(ratings) {
			end = len(ratings)
		}

		for _, ar := range ratings[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO athlete_ratings (id, athlete_id, discipline, gender, age, belt, weight,
				    rating, match_happened_at, rank, percentile, match_count,
				    previous_rating, previous_rank, previous_match_count, previous_percentile, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ar.ID, ar.AthleteID, string(ar.Discipline), string(ar.Gender), string(ar.Age),
				string(ar.Belt), string(ar.Weight), ar.Rating, ar.MatchHappenedAt, ar.Rank,
				ar.Percentile, ar.MatchCount,
				ar.PreviousRating, ar.PreviousRank, ar.PreviousMatchCount, ar.PreviousPercentile,
				ar.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert rating for athlete %s: %w", ar.AthleteID, err)
			}
		}
	}

	if err := r.refreshAverages(ctx, tx, discipline); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *BoardRepository) refreshAverages(ctx context.Context, tx *sql.Tx, discipline domain.Discipline) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM athlete_rating_averages WHERE discipline = ?`, string(discipline)); err != nil {
		return fmt.Errorf("failed to clear averages for %s: %w", discipline, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT gender, age, belt, weight, AVG(rating)
		FROM athlete_ratings
		WHERE discipline = ?
		GROUP BY gender, age, belt, weight`, string(discipline))
	if err != nil {
		return fmt.Errorf("failed to aggregate averages for %s: %w", discipline, err)
	}

	type avgRow struct {
		gender, age, belt, weight string
		rating                    float64
	}
	var averages []avgRow
	for rows.Next() {
		var a avgRow
		if err := rows.Scan(&a.gender, &a.age, &a.belt, &a.weight, &a.rating); err != nil {
			rows.Close()
			return err
		}
		averages = append(averages, a)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	now := time.Now()
	for _, a := range averages {
		id := RatingRowID("average", string(discipline), a.gender, a.age, a.belt, a.weight, "")
		_, err := tx.ExecContext(ctx, `
			INSERT INTO athlete_rating_averages (id, discipline, gender, age, belt, weight, rating, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, string(discipline), a.gender, a.age, a.belt, a.weight, a.rating, now)
		if err != nil {
			return fmt.Errorf("failed to insert average: %w", err)
		}
	}
	return nil
}

// MinPercentile returns the athlete's best percentile across the given age
// bands, or 1 when they appear on no board.
func (r *BoardRepository) MinPercentile(ctx context.Context, athleteID uuid.UUID, discipline domain.Discipline, ages []domain.Age) (float64, error) {
	if len(ages) == 0 {
		return 1, nil
	}

	query := `SELECT MIN(percentile) FROM athlete_ratings WHERE athlete_id = ? AND discipline = ? AND age IN (?` +
		repeatPlaceholder(len(ages)-1) + `)`
	args := []any{athleteID, string(discipline)}
	for _, age := range ages {
		args = append(args, string(age))
	}

	var percentile sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&percentile); err != nil {
		return 0, err
	}
	if !percentile.Valid {
		return 1, nil
	}
	return percentile.Float64, nil
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

// RatingRowID synthesizes a deterministic name-based row id, the sqlite
// stand-in for gen_random_uuid().
func RatingRowID(parts ...string) uuid.UUID {
	name := ""
	for _, p := range parts {
		name += p + "|"
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}
