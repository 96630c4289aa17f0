package service

import (
	"context"
	"fmt"
	"time"

	"grappling-rank/internal/domain"
	"grappling-rank/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type BoardService struct {
	boardRepo *repository.BoardRepository
	logger    zerolog.Logger
}

func NewBoardService(boardRepo *repository.BoardRepository, logger zerolog.Logger) *BoardService {
	return &BoardService{boardRepo: boardRepo, logger: logger}
}

// Rebuild recomputes the ranking board for one discipline and swaps it in
// atomically. The rows about to be replaced become the previous-period
// columns of the new rows; when previousDate is set the previous period is
// instead recomputed from matches up to that date.
func (s *BoardService) Rebuild(ctx context.Context, discipline domain.Discipline, previousDate *time.Time) error {
	started := time.Now()

	snapshots, err := s.previousSnapshots(ctx, discipline, previousDate)
	if err != nil {
		return err
	}

	board, err := s.boardRepo.Compute(ctx, discipline, time.Now())
	if err != nil {
		return err
	}

	now := time.Now()
	ratings := make([]domain.AthleteRating, 0, len(board))
	for _, row := range board {
		ar := domain.AthleteRating{
			ID: repository.RatingRowID("rating", string(discipline), row.AthleteID.String(),
				string(row.Gender), string(row.Age), string(row.Belt), string(row.Weight)),
			AthleteID:       row.AthleteID,
			Discipline:      discipline,
			Gender:          row.Gender,
			Age:             row.Age,
			Belt:            row.Belt,
			Weight:          row.Weight,
			Rating:          row.Rating,
			MatchHappenedAt: row.HappenedAt,
			Rank:            row.Rank,
			Percentile:      percentile(row.Rank, row.PartitionSize),
			MatchCount:      row.MatchCount,
			CreatedAt:       now,
		}

		key := repository.SnapshotKey(row.AthleteID, row.Gender, row.Age, row.Belt, row.Weight)
		if prev, ok := snapshots[key]; ok {
			ar.PreviousRating = &prev.Rating
			ar.PreviousRank = &prev.Rank
			ar.PreviousMatchCount = &prev.MatchCount
			ar.PreviousPercentile = &prev.Percentile
		}
		ratings = append(ratings, ar)
	}

	if err := s.boardRepo.ReplaceDiscipline(ctx, discipline, ratings); err != nil {
		return err
	}

	s.logger.Info().
		Str("discipline", string(discipline)).
		Int("rows", len(ratings)).
		Dur("took", time.Since(started)).
		Msg("ranking board rebuilt")
	return nil
}

// RebuildAll reranks every discipline. The group is capped at one worker;
// sqlite has a single writer and the swaps must not contend.
func (s *BoardService) RebuildAll(ctx context.Context, previousDate *time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for _, discipline := range domain.Disciplines() {
		discipline := discipline
		g.Go(func() error {
			if err := s.Rebuild(ctx, discipline, previousDate); err != nil {
				return fmt.Errorf("failed to rebuild %s board: %w", discipline, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *BoardService) previousSnapshots(ctx context.Context, discipline domain.Discipline, previousDate *time.Time) (map[string]repository.Snapshot, error) {
	if previousDate == nil {
		snapshots, err := s.boardRepo.CurrentSnapshot(ctx, discipline)
		if err != nil {
			return nil, fmt.Errorf("failed to read current board for %s: %w", discipline, err)
		}
		return snapshots, nil
	}

	board, err := s.boardRepo.Compute(ctx, discipline, *previousDate)
	if err != nil {
		return nil, fmt.Errorf("failed to compute board for %s as of %s: %w", discipline, previousDate, err)
	}

	snapshots := make(map[string]repository.Snapshot, len(board))
	for _, row := range board {
		key := repository.SnapshotKey(row.AthleteID, row.Gender, row.Age, row.Belt, row.Weight)
		snapshots[key] = repository.Snapshot{
			Rating:     row.Rating,
			Rank:       row.Rank,
			MatchCount: row.MatchCount,
			Percentile: percentile(row.Rank, row.PartitionSize),
		}
	}
	return snapshots, nil
}

// percentile is the share of the partition strictly ahead: the sole leader
// of any partition sits at 0.
func percentile(rank, partitionSize int) float64 {
	if partitionSize <= 0 {
		return 1
	}
	return float64(rank-1) / float64(partitionSize)
}
