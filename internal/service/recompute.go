package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"grappling-rank/internal/constants"
	"grappling-rank/internal/domain"
	"grappling-rank/internal/rating"
	"grappling-rank/internal/repository"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

type RecomputeService struct {
	matchRepo      *repository.MatchRepository
	athleteRepo    *repository.AthleteRepository
	suspensionRepo *repository.SuspensionRepository
	board          *BoardService
	logger         zerolog.Logger
}

func NewRecomputeService(matchRepo *repository.MatchRepository, athleteRepo *repository.AthleteRepository, suspensionRepo *repository.SuspensionRepository, board *BoardService, logger zerolog.Logger) *RecomputeService {
	return &RecomputeService{
		matchRepo:      matchRepo,
		athleteRepo:    athleteRepo,
		suspensionRepo: suspensionRepo,
		board:          board,
		logger:         logger,
	}
}

type RecomputeParams struct {
	Discipline domain.Discipline
	Gender     domain.Gender
	StartDate  *time.Time
	AthleteID  uuid.UUID
	YouthOnly  bool

	// Score rewrites match rows; Rerank regenerates the ranking board.
	Score  bool
	Rerank bool

	// RankPreviousDate, when set, recomputes the previous-period snapshot
	// from matches up to that date instead of reading the old board.
	RankPreviousDate *time.Time
}

type RecomputeStats struct {
	Processed int
	Updated   int
	Skipped   int
}

// Run streams the matches in scope in (happened_at, id) order and applies
// the rating policy to each. Strictly single-writer: the caller holds the
// pid lock. A second run over unchanged data writes nothing.
func (s *RecomputeService) Run(ctx context.Context, params RecomputeParams) (*RecomputeStats, error) {
	stats := &RecomputeStats{}

	if params.Score {
		if err := s.score(ctx, params, stats); err != nil {
			return stats, err
		}
	}

	if params.Rerank {
		if err := s.board.Rebuild(ctx, params.Discipline, params.RankPreviousDate); err != nil {
			return stats, fmt.Errorf("failed to rebuild board for %s: %w", params.Discipline, err)
		}
	}

	s.logger.Info().
		Str("discipline", string(params.Discipline)).
		Int("processed", stats.Processed).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Msg("recomputation finished")
	return stats, nil
}

func (s *RecomputeService) score(ctx context.Context, params RecomputeParams, stats *RecomputeStats) error {
	matches, err := s.matchRepo.ListForRecompute(ctx, repository.Scope{
		Discipline: params.Discipline,
		Gender:     params.Gender,
		StartDate:  params.StartDate,
		AthleteID:  params.AthleteID,
		YouthOnly:  params.YouthOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}

	suspensions, err := s.loadSuspensions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load suspensions: %w", err)
	}

	s.logger.Info().
		Str("discipline", string(params.Discipline)).
		Int("matches", len(matches)).
		Msg("recomputation started")

	bar := s.newProgressBar(len(matches))

	for i, m := range matches {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.processMatch(ctx, m, params, suspensions, stats); err != nil {
			// Per-match failures are data problems; log and keep going.
			s.logger.Error().Err(err).Str("match_id", m.ID.String()).Msg("skipping match")
			stats.Skipped++
		}
		stats.Processed++

		if bar != nil {
			bar.Add(1)
		} else if (i+1)%constants.ProgressLogEvery == 0 {
			s.logger.Info().
				Int("done", i+1).
				Int("total", len(matches)).
				Int("percent", (i+1)*100/len(matches)).
				Msg("recomputation progress")
		}
	}

	if bar != nil {
		bar.Finish()
	}
	return nil
}

func (s *RecomputeService) newProgressBar(total int) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("recomputing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// loadSuspensions resolves each suspension's free-text name to an athlete;
// unresolvable names are logged and skipped.
func (s *RecomputeService) loadSuspensions(ctx context.Context) (map[uuid.UUID][]domain.Suspension, error) {
	suspensions, err := s.suspensionRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byAthlete := make(map[uuid.UUID][]domain.Suspension)
	for _, susp := range suspensions {
		athleteID, err := s.athleteRepo.IDByNormalizedName(ctx, domain.NormalizeName(susp.AthleteName))
		if err != nil {
			s.logger.Warn().Str("name", susp.AthleteName).Msg("suspension name does not resolve to an athlete")
			continue
		}
		byAthlete[athleteID] = append(byAthlete[athleteID], susp)
	}
	return byAthlete, nil
}

func (s *RecomputeService) processMatch(ctx context.Context, m repository.MatchRow, params RecomputeParams, suspensions map[uuid.UUID][]domain.Suspension, stats *RecomputeStats) error {
	participants, err := s.matchRepo.ParticipantsByMatch(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) != 2 {
		return fmt.Errorf("match has %d participants, want 2", len(participants))
	}

	red, blue := participants[0], participants[1]
	if !red.Red || blue.Red {
		red, blue = blue, red
	}
	if red.AthleteID == blue.AthleteID {
		return fmt.Errorf("both participants are athlete %s", red.AthleteID)
	}

	redInput, err := s.sideInput(ctx, m, red, suspensions)
	if err != nil {
		return err
	}
	blueInput, err := s.sideInput(ctx, m, blue, suspensions)
	if err != nil {
		return err
	}

	decision := rating.Evaluate(rating.MatchInput{
		Division:   m.Division,
		HappenedAt: m.HappenedAt,
		WinnerOnly: m.RatedWinnerOnly,
		Red:        redInput,
		Blue:       blueInput,
	})

	redUpdate := participantUpdate(true, decision.Red, red)
	blueUpdate := participantUpdate(false, decision.Blue, blue)

	var ratedUpdate *bool
	if params.AthleteID != uuid.Nil {
		// Athlete-scoped runs are best-effort: only that side is written.
		if red.AthleteID != params.AthleteID {
			redUpdate = nil
		}
		if blue.AthleteID != params.AthleteID {
			blueUpdate = nil
		}
	} else if decision.Rated != m.Rated {
		ratedUpdate = &decision.Rated
	}

	if redUpdate == nil && blueUpdate == nil && ratedUpdate == nil {
		return nil
	}

	if err := s.matchRepo.ApplyDecision(ctx, m.ID, ratedUpdate, redUpdate, blueUpdate); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

func (s *RecomputeService) sideInput(ctx context.Context, m repository.MatchRow, p domain.MatchParticipant, suspensions map[uuid.UUID][]domain.Suspension) (rating.SideInput, error) {
	div := m.Division

	last, err := s.matchRepo.LastParticipant(ctx, p.AthleteID, div.Discipline, div.Gender, m.HappenedAt, m.ID, -1)
	if err != nil {
		return rating.SideInput{}, fmt.Errorf("failed to load prior match for %s: %w", p.AthleteID, err)
	}
	lastAtAge, err := s.matchRepo.LastParticipant(ctx, p.AthleteID, div.Discipline, div.Gender, m.HappenedAt, m.ID, div.Age.Rank())
	if err != nil {
		return rating.SideInput{}, fmt.Errorf("failed to load prior same-age match for %s: %w", p.AthleteID, err)
	}

	ratedCount, err := s.matchRepo.RatedCountInWindow(ctx, p.AthleteID, div.Discipline, div.Gender,
		m.HappenedAt.Add(-constants.RatedWindow), m.HappenedAt, m.ID)
	if err != nil {
		return rating.SideInput{}, fmt.Errorf("failed to count rated matches for %s: %w", p.AthleteID, err)
	}

	var knownWeight domain.Weight
	if div.Weight.IsOpen() {
		knownWeight, err = s.matchRepo.LastKnownWeight(ctx, p.AthleteID, div.Discipline, div.Gender, m.HappenedAt, m.ID, m.EventID)
		if err != nil {
			return rating.SideInput{}, fmt.Errorf("failed to look up weight for %s: %w", p.AthleteID, err)
		}
	}

	manualBelt, err := s.athleteRepo.ManualBeltAsOf(ctx, p.AthleteID, m.HappenedAt)
	if err != nil {
		return rating.SideInput{}, fmt.Errorf("failed to load manual promotions for %s: %w", p.AthleteID, err)
	}

	suspended := false
	for _, susp := range suspensions[p.AthleteID] {
		if susp.Covers(m.HappenedAt) {
			suspended = true
			break
		}
	}

	return rating.SideInput{
		AthleteID:   p.AthleteID,
		Winner:      p.Winner,
		Note:        p.Note,
		Last:        last,
		LastAtAge:   lastAtAge,
		RatedCount:  ratedCount,
		KnownWeight: knownWeight,
		ManualBelt:  manualBelt,
		Suspended:   suspended,
	}, nil
}

// participantUpdate returns nil when the stored row already matches the
// decision, which is what makes a second pass a no-op.
func participantUpdate(red bool, result rating.SideResult, stored domain.MatchParticipant) *repository.ParticipantUpdate {
	if stored.StartRating == result.StartRating &&
		stored.EndRating == result.EndRating &&
		stored.StartMatchCount == result.StartMatchCount &&
		stored.EndMatchCount == result.EndMatchCount &&
		stored.WeightForOpen == result.WeightForOpen &&
		stored.RatingNote == result.Note {
		return nil
	}
	return &repository.ParticipantUpdate{
		Red:             red,
		StartRating:     result.StartRating,
		EndRating:       result.EndRating,
		StartMatchCount: result.StartMatchCount,
		EndMatchCount:   result.EndMatchCount,
		WeightForOpen:   result.WeightForOpen,
		RatingNote:      result.Note,
	}
}
