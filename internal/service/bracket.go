package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"grappling-rank/internal/constants"
	"grappling-rank/internal/domain"
	"grappling-rank/internal/rating"
	"grappling-rank/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NoteCloseout marks the silver side of a final between two teammates.
const NoteCloseout = "Closeout"

// BracketSlot is one side of a scraped bracket match. Winner stays false on
// both sides while the match is pending.
type BracketSlot struct {
	AthleteID uuid.UUID
	Name      string
	Team      string
	Winner    bool
	Note      string
}

// BracketMatch is one scraped match of an upcoming or in-progress bracket.
type BracketMatch struct {
	ID         string
	HappenedAt time.Time
	Final      bool
	Red        BracketSlot
	Blue       BracketSlot
}

// ProjectedCompetitor is one competitor's pre-bracket projection. The
// adjusted rating carries the average open-class handicap against the rest
// of the field and exists only to sort ordinals.
type ProjectedCompetitor struct {
	AthleteID      uuid.UUID
	Name           string
	Team           string
	Seed           int
	Rating         float64
	MatchCount     int
	Percentile     float64
	AdjustedRating float64
	Ordinal        int
	Provisional    bool
	KnownWeight    domain.Weight
}

type ProjectedSide struct {
	AthleteID   uuid.UUID
	Name        string
	StartRating float64
	EndRating   float64
	Expected    float64
	Note        string
}

type ProjectedMatch struct {
	ID         string
	HappenedAt time.Time
	Red        ProjectedSide
	Blue       ProjectedSide
}

// Projection is the bracket projector's output. Live holds the candidate
// live-rating rows; they are persisted separately by RecordLive.
type Projection struct {
	Competitors []ProjectedCompetitor
	Matches     []ProjectedMatch
	Live        []domain.LiveRating
}

// BracketService projects ratings through an upcoming bracket. It shares
// the rating policy with the recomputation pipeline but never writes to
// match rows; its only persistent output is the live-rating table.
type BracketService struct {
	matchRepo   *repository.MatchRepository
	athleteRepo *repository.AthleteRepository
	boardRepo   *repository.BoardRepository
	liveRepo    *repository.LiveRatingRepository
	logger      zerolog.Logger
}

func NewBracketService(matchRepo *repository.MatchRepository, athleteRepo *repository.AthleteRepository, boardRepo *repository.BoardRepository, liveRepo *repository.LiveRatingRepository, logger zerolog.Logger) *BracketService {
	return &BracketService{
		matchRepo:   matchRepo,
		athleteRepo: athleteRepo,
		boardRepo:   boardRepo,
		liveRepo:    liveRepo,
		logger:      logger,
	}
}

// Project computes the pre-bracket field and, when scraped matches are
// given, threads the rating state through them in time order.
func (s *BracketService) Project(ctx context.Context, eventID uuid.UUID, div domain.Division, competitors []domain.Competitor, matches []BracketMatch) (*Projection, error) {
	proj := &Projection{}
	states := make(map[uuid.UUID]*rating.SideInput)

	for _, c := range competitors {
		pc, side, err := s.loadCompetitor(ctx, eventID, div, c)
		if err != nil {
			return nil, err
		}
		proj.Competitors = append(proj.Competitors, *pc)
		if c.AthleteID != uuid.Nil {
			states[c.AthleteID] = side
		}
	}

	adjustRatings(div, proj.Competitors)
	assignOrdinals(proj.Competitors)

	s.threadMatches(div, matches, states, proj)
	propagateDisqualifications(proj.Matches)

	return proj, nil
}

// RecordLive persists the projection's live-rating candidates, skipping
// athletes whose committed match history already covers the projected time.
func (s *BracketService) RecordLive(ctx context.Context, proj *Projection) error {
	for i := range proj.Live {
		lr := &proj.Live[i]

		lastPersisted, err := s.matchRepo.LastParticipantTime(ctx, lr.AthleteID, lr.Discipline)
		if err != nil {
			return fmt.Errorf("failed to read last persisted match for %s: %w", lr.AthleteID, err)
		}
		if !lr.HappenedAt.After(lastPersisted) {
			continue
		}

		if err := s.liveRepo.Upsert(ctx, lr); err != nil {
			return err
		}
	}
	return nil
}

// ExpireLive ages out live ratings older than the retention window.
func (s *BracketService) ExpireLive(ctx context.Context) error {
	_, err := s.liveRepo.DeleteExpired(ctx, time.Now().Add(-constants.LiveRatingTTL))
	return err
}

func (s *BracketService) loadCompetitor(ctx context.Context, eventID uuid.UUID, div domain.Division, c domain.Competitor) (*ProjectedCompetitor, *rating.SideInput, error) {
	pc := &ProjectedCompetitor{
		AthleteID:  c.AthleteID,
		Name:       c.Name,
		Team:       c.Team,
		Seed:       c.Seed,
		Percentile: 1,
	}
	side := &rating.SideInput{AthleteID: c.AthleteID}

	if c.AthleteID == uuid.Nil {
		// Unmatched registration: treat as a debut at the division seed.
		pc.Rating, _ = rating.StartingRating(div, *side)
		pc.Provisional = true
		return pc, side, nil
	}

	now := time.Now()

	last, err := s.matchRepo.LastParticipant(ctx, c.AthleteID, div.Discipline, div.Gender, now, uuid.Nil, -1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prior match for %s: %w", c.AthleteID, err)
	}
	lastAtAge, err := s.matchRepo.LastParticipant(ctx, c.AthleteID, div.Discipline, div.Gender, now, uuid.Nil, div.Age.Rank())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prior same-age match for %s: %w", c.AthleteID, err)
	}
	ratedCount, err := s.matchRepo.RatedCountInWindow(ctx, c.AthleteID, div.Discipline, div.Gender,
		now.Add(-constants.RatedWindow), now, uuid.Nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count rated matches for %s: %w", c.AthleteID, err)
	}
	manualBelt, err := s.athleteRepo.ManualBeltAsOf(ctx, c.AthleteID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load manual promotions for %s: %w", c.AthleteID, err)
	}

	var knownWeight domain.Weight
	if div.Weight.IsOpen() {
		knownWeight, err = s.matchRepo.LastKnownWeight(ctx, c.AthleteID, div.Discipline, div.Gender, now, uuid.Nil, eventID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up weight for %s: %w", c.AthleteID, err)
		}
	}

	percentile, err := s.boardRepo.MinPercentile(ctx, c.AthleteID, div.Discipline, allowedAges(div.Age))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load percentile for %s: %w", c.AthleteID, err)
	}

	side.Last = last
	side.LastAtAge = lastAtAge
	side.RatedCount = ratedCount
	side.KnownWeight = knownWeight
	side.ManualBelt = manualBelt

	pc.Rating, _ = rating.StartingRating(div, *side)
	if last != nil {
		pc.MatchCount = last.EndMatchCount
	}
	pc.Percentile = percentile
	pc.Provisional = pc.MatchCount <= constants.ProvisionalMatchCount
	pc.KnownWeight = knownWeight
	return pc, side, nil
}

// allowedAges is the set of boards a competitor of the given age band may
// appear on: masters may also hold an adult or younger-master ranking.
func allowedAges(age domain.Age) []domain.Age {
	if age.Rank() <= domain.AgeAdult.Rank() {
		return []domain.Age{age}
	}
	ages := []domain.Age{domain.AgeAdult}
	masters := []domain.Age{
		domain.AgeMaster1, domain.AgeMaster2, domain.AgeMaster3, domain.AgeMaster4,
		domain.AgeMaster5, domain.AgeMaster6, domain.AgeMaster7,
	}
	for _, m := range masters {
		if m.Rank() <= age.Rank() {
			ages = append(ages, m)
		}
	}
	return ages
}

// adjustRatings adds each open-class competitor's average pairwise handicap
// against the rest of the field. Outside the open class the adjusted rating
// is the rating itself.
func adjustRatings(div domain.Division, competitors []ProjectedCompetitor) {
	for i := range competitors {
		competitors[i].AdjustedRating = competitors[i].Rating
	}
	if !div.Weight.IsOpen() || len(competitors) < 2 {
		return
	}

	tier := div.Belt.Tier()
	for i := range competitors {
		selfIdx, ok := competitors[i].KnownWeight.Index()
		if !ok {
			continue
		}
		sum := 0.0
		for j := range competitors {
			if j == i {
				continue
			}
			otherIdx, ok := competitors[j].KnownWeight.Index()
			if ok && selfIdx < otherIdx {
				sum += domain.OpenHandicap(tier, otherIdx-selfIdx)
			}
		}
		competitors[i].AdjustedRating += sum / float64(len(competitors)-1)
	}
}

// assignOrdinals sorts established competitors above provisionals, then by
// adjusted rating, and groups ties on the rounded rating. A tie block of
// size n makes the next ordinal skip by n.
func assignOrdinals(competitors []ProjectedCompetitor) {
	order := make([]*ProjectedCompetitor, len(competitors))
	for i := range competitors {
		order[i] = &competitors[i]
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Provisional != order[j].Provisional {
			return !order[i].Provisional
		}
		return order[i].AdjustedRating > order[j].AdjustedRating
	})

	for i, pc := range order {
		if i > 0 && pc.Provisional == order[i-1].Provisional &&
			math.Round(pc.AdjustedRating) == math.Round(order[i-1].AdjustedRating) {
			pc.Ordinal = order[i-1].Ordinal
			continue
		}
		pc.Ordinal = i + 1
	}
}

func (s *BracketService) threadMatches(div domain.Division, matches []BracketMatch, states map[uuid.UUID]*rating.SideInput, proj *Projection) {
	sorted := make([]BracketMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].HappenedAt.Equal(sorted[j].HappenedAt) {
			return sorted[i].HappenedAt.Before(sorted[j].HappenedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	live := make(map[uuid.UUID]domain.LiveRating)

	for _, m := range sorted {
		redState, redOK := states[m.Red.AthleteID]
		blueState, blueOK := states[m.Blue.AthleteID]
		if !redOK || !blueOK {
			// A slot not yet decided by an earlier round, or a competitor
			// that never matched an athlete. Nothing to project.
			continue
		}

		redIn, blueIn := *redState, *blueState
		redIn.Winner, redIn.Note = m.Red.Winner, m.Red.Note
		blueIn.Winner, blueIn.Note = m.Blue.Winner, m.Blue.Note

		decision := rating.Evaluate(rating.MatchInput{
			Division:   div,
			HappenedAt: m.HappenedAt,
			Red:        redIn,
			Blue:       blueIn,
		})

		pm := ProjectedMatch{
			ID:         m.ID,
			HappenedAt: m.HappenedAt,
			Red:        projectedSide(m.Red, decision.Red),
			Blue:       projectedSide(m.Blue, decision.Blue),
		}

		winnerKnown := m.Red.Winner != m.Blue.Winner

		switch {
		case winnerKnown && isCloseout(m):
			// Teammates closing out the final: expected scores stand but
			// nobody's rating moves, and the silver side is annotated.
			pm.Red.EndRating = pm.Red.StartRating
			pm.Blue.EndRating = pm.Blue.StartRating
			if m.Red.Winner {
				pm.Blue.Note = joinNote(pm.Blue.Note, NoteCloseout)
			} else {
				pm.Red.Note = joinNote(pm.Red.Note, NoteCloseout)
			}

		case winnerKnown && decision.Rated:
			advance(redState, decision.Red, div)
			advance(blueState, decision.Blue, div)
			live[m.Red.AthleteID] = liveRow(m.Red.AthleteID, div, decision.Red, m.HappenedAt)
			live[m.Blue.AthleteID] = liveRow(m.Blue.AthleteID, div, decision.Blue, m.HappenedAt)

		case !winnerKnown:
			// Pending match: report expected scores without mutating state.
			pm.Red.EndRating = pm.Red.StartRating
			pm.Blue.EndRating = pm.Blue.StartRating
		}

		proj.Matches = append(proj.Matches, pm)
	}

	for _, lr := range live {
		proj.Live = append(proj.Live, lr)
	}
	sort.Slice(proj.Live, func(i, j int) bool {
		return proj.Live[i].AthleteID.String() < proj.Live[j].AthleteID.String()
	})
}

func projectedSide(slot BracketSlot, result rating.SideResult) ProjectedSide {
	return ProjectedSide{
		AthleteID:   slot.AthleteID,
		Name:        slot.Name,
		StartRating: result.StartRating,
		EndRating:   result.EndRating,
		Expected:    result.Expected,
		Note:        joinNote(slot.Note, result.Note),
	}
}

func isCloseout(m BracketMatch) bool {
	return m.Final && m.Red.Team != "" && m.Red.Team == m.Blue.Team
}

// advance rolls an in-memory side forward past a projected rated match.
// Belt and age transitions were consumed by the first threading step, so
// the prior belt and age pin to the division from here on.
func advance(state *rating.SideInput, result rating.SideResult, div domain.Division) {
	prior := &rating.PriorMatch{
		EndRating:     result.EndRating,
		EndMatchCount: result.EndMatchCount,
		Belt:          div.Belt,
		Age:           div.Age,
	}
	state.Last = prior
	state.LastAtAge = prior
	state.RatedCount++
}

func liveRow(athleteID uuid.UUID, div domain.Division, result rating.SideResult, happenedAt time.Time) domain.LiveRating {
	return domain.LiveRating{
		AthleteID:     athleteID,
		Discipline:    div.Discipline,
		DivisionID:    div.ID,
		EndRating:     result.EndRating,
		EndMatchCount: result.EndMatchCount,
		HappenedAt:    happenedAt,
	}
}

// propagateDisqualifications copies a DQ note backwards onto the earlier
// matches of the disqualified athlete. Display only; threaded state and
// committed ratings are untouched.
func propagateDisqualifications(matches []ProjectedMatch) {
	for _, m := range matches {
		for _, side := range []ProjectedSide{m.Red, m.Blue} {
			if !isDisqualification(side.Note) {
				continue
			}
			for i := range matches {
				if !matches[i].HappenedAt.Before(m.HappenedAt) {
					continue
				}
				if matches[i].Red.AthleteID == side.AthleteID {
					matches[i].Red.Note = joinNote(matches[i].Red.Note, side.Note)
				}
				if matches[i].Blue.AthleteID == side.AthleteID {
					matches[i].Blue.Note = joinNote(matches[i].Blue.Note, side.Note)
				}
			}
		}
	}
}

func isDisqualification(note string) bool {
	return strings.Contains(strings.ToLower(note), "disqualif")
}

func joinNote(existing, note string) string {
	if existing == "" {
		return note
	}
	if strings.Contains(existing, note) {
		return existing
	}
	return existing + "; " + note
}
