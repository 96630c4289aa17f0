// Package rating decides how a single match affects both athletes' ratings.
// It wraps the pure Elo kernel with starting-rating selection, K-factor
// ladders, open-class handicaps and the carve-out rules. The policy never
// touches storage and never fails: it always returns a decision.
package rating

import (
	"fmt"
	"strings"
	"time"

	"grappling-rank/internal/domain"
	"grappling-rank/internal/elo"

	"github.com/google/uuid"
)

// Carve-out and adjustment notes written to MatchParticipant.rating_note.
const (
	NoteSuspended       = "Unrated: athlete suspended for anti-doping violation"
	NoteWinnerMissing   = "Unrated: winner not recorded"
	NoteNoContest       = "Unrated: athlete did not participate"
	NoteSourceUnrecorded = "Unrated: Winner not recorded by the IBJJF"
	NoteSilverKeeps     = "Unrated: sourced from medalists, silver keeps rating"

	// SentinelUnrecorded is the source note that marks a result the
	// federation never published.
	SentinelUnrecorded = "Winner not recorded by the IBJJF"
)

// noContestMarkers in a source note mean the match never happened as a
// contest. Matched case-insensitively.
var noContestMarkers = []string{
	"disqualified by no show",
	"overweight",
	"acima do peso",
	"withdraw",
}

// PriorMatch is the committed end-state of an athlete's most recent earlier
// participation.
type PriorMatch struct {
	EndRating     float64
	EndMatchCount int
	Belt          domain.Belt
	Age           domain.Age
}

// SideInput carries everything the policy needs to know about one side.
// The dependency lookups (Last, LastAtAge, RatedCount, KnownWeight) are the
// caller's responsibility so the policy stays storage-free.
type SideInput struct {
	AthleteID uuid.UUID
	Winner    bool
	Note      string // source-provided note

	// Last is the most recent prior participation in the same
	// discipline+gender, any age/belt/weight. Nil for a debut.
	Last *PriorMatch

	// LastAtAge is the most recent prior participation restricted to age
	// bands at or above the current division's.
	LastAtAge *PriorMatch

	// RatedCount is the number of rated matches in the 3-year window.
	RatedCount int

	// KnownWeight is the athlete's presumed weight class at match time,
	// empty when unknown. Only consulted for open-class divisions.
	KnownWeight domain.Weight

	// ManualBelt is the highest administratively granted belt as of the
	// match date, empty when none.
	ManualBelt domain.Belt

	Suspended bool
}

type SideResult struct {
	StartRating     float64
	EndRating       float64
	StartMatchCount int
	EndMatchCount   int
	WeightForOpen   domain.Weight
	Note            string
	Expected        float64
}

type Decision struct {
	Rated bool
	Red   SideResult
	Blue  SideResult
}

type MatchInput struct {
	Division   domain.Division
	HappenedAt time.Time
	WinnerOnly bool
	Red        SideInput
	Blue       SideInput
}

// Evaluate computes the rating decision for one match. Swapping red and
// blue yields the same per-athlete results.
func Evaluate(in MatchInput) Decision {
	div := in.Division

	redStart, redNote := startingRating(div, in.Red)
	blueStart, blueNote := startingRating(div, in.Blue)

	redCount := priorCount(in.Red)
	blueCount := priorCount(in.Blue)

	red := SideResult{StartRating: redStart, StartMatchCount: redCount, Note: redNote}
	blue := SideResult{StartRating: blueStart, StartMatchCount: blueCount, Note: blueNote}

	redHand, blueHand, unknownOpen := openHandicaps(div, in.Red, in.Blue, &red, &blue)

	redK := domain.BaseK(in.Red.RatedCount, unknownOpen) * domain.AgeKModifier(div.Age)
	blueK := domain.BaseK(in.Blue.RatedCount, unknownOpen) * domain.AgeKModifier(div.Age)

	redComp := elo.Competitor{Rating: redStart + redHand, K: redK}
	blueComp := elo.Competitor{Rating: blueStart + blueHand, K: blueK}
	red.Expected = elo.Expected(redComp, blueComp)
	blue.Expected = 1 - red.Expected

	if notes := carveOuts(in); len(notes) > 0 {
		red.EndRating = red.StartRating
		blue.EndRating = blue.StartRating
		red.EndMatchCount = red.StartMatchCount
		blue.EndMatchCount = blue.StartMatchCount
		red.Note = joinNotes(red.Note, notes...)
		blue.Note = joinNotes(blue.Note, notes...)
		return Decision{Rated: false, Red: red, Blue: blue}
	}

	switch {
	case in.Red.Winner:
		redComp, blueComp = elo.Beat(redComp, blueComp)
	case in.Blue.Winner:
		blueComp, redComp = elo.Beat(blueComp, redComp)
	default:
		redComp, blueComp = elo.Tie(redComp, blueComp)
	}

	red.EndRating = redComp.Rating - redHand
	blue.EndRating = blueComp.Rating - blueHand

	// A paradoxical handicap can make the winner lose points; freeze the
	// match instead.
	if in.Red.Winner && red.EndRating < red.StartRating ||
		in.Blue.Winner && blue.EndRating < blue.StartRating {
		red.EndRating = red.StartRating
		blue.EndRating = blue.StartRating
	}

	red.EndRating = max(red.EndRating, 0)
	blue.EndRating = max(blue.EndRating, 0)

	red.EndMatchCount = red.StartMatchCount + 1
	blue.EndMatchCount = blue.StartMatchCount + 1

	if in.WinnerOnly {
		// Medalist-only sources: the silver medalist keeps their rating.
		if in.Red.Winner {
			restore(&blue)
		} else {
			restore(&red)
		}
	}

	return Decision{Rated: true, Red: red, Blue: blue}
}

// StartingRating exposes the seeding rules on their own, for prospective
// projections that need a competitor's rating before any match is threaded.
func StartingRating(div domain.Division, side SideInput) (float64, string) {
	return startingRating(div, side)
}

func restore(loser *SideResult) {
	loser.EndRating = loser.StartRating
	loser.EndMatchCount = loser.StartMatchCount
	loser.Note = joinNotes(loser.Note, NoteSilverKeeps)
}

func priorCount(side SideInput) int {
	if side.Last == nil {
		return 0
	}
	return side.Last.EndMatchCount
}

// startingRating applies the §seeding rules: seed for debuts, promotion
// bumps, age-transition floors, otherwise carry the last end rating.
func startingRating(div domain.Division, side SideInput) (float64, string) {
	last := side.Last
	if last == nil {
		return domain.SeedRating(div.Belt, div.Age), ""
	}

	priorBelt := last.Belt
	if side.ManualBelt != "" && side.ManualBelt.Rank() > priorBelt.Rank() {
		// An administrative promotion already moved the athlete up; treat
		// it as their competed belt so the bump is not applied twice.
		priorBelt = side.ManualBelt
	}
	if priorBelt.Rank() > div.Belt.Rank() {
		// Data-quality fallback: never demote.
		priorBelt = div.Belt
	}

	if priorBelt.Rank() < div.Belt.Rank() {
		bump := domain.PromotionBump(div.Belt)
		seed := domain.SeedRating(div.Belt, div.Age)
		note := fmt.Sprintf("Promoted from %s to %s (+%g)", priorBelt, div.Belt, bump)

		if div.Belt.Rank()-priorBelt.Rank() > 1 && last.EndRating < seed {
			return seed, note
		}
		return last.EndRating + bump, note
	}

	if side.LastAtAge == nil && last.Age.Rank() < div.Age.Rank() {
		seed := domain.SeedRating(div.Belt, div.Age)
		if last.EndRating < domain.SeedRating(last.Belt, last.Age) && last.EndRating < seed {
			return seed, fmt.Sprintf("Adjusted rating for new age division %s", div.Age)
		}
	}

	return last.EndRating, ""
}

// openHandicaps resolves presumed weights, records them on the results and
// returns the ghost points per side. unknownOpen reports an open-class
// match where either weight is unknown, which forces the mature K.
func openHandicaps(div domain.Division, red, blue SideInput, redRes, blueRes *SideResult) (float64, float64, bool) {
	if !div.Weight.IsOpen() {
		return 0, 0, false
	}

	redRes.WeightForOpen = red.KnownWeight
	blueRes.WeightForOpen = blue.KnownWeight

	redIdx, redOK := red.KnownWeight.Index()
	blueIdx, blueOK := blue.KnownWeight.Index()
	if !redOK || !blueOK {
		return 0, 0, true
	}

	h := domain.OpenHandicap(div.Belt.Tier(), redIdx-blueIdx)
	if redIdx < blueIdx {
		return h, 0, false
	}
	if blueIdx < redIdx {
		return 0, h, false
	}
	return 0, 0, false
}

// carveOuts returns the no-rating-change notes for this match, in the
// fixed stacking order: suspension, winner not recorded, no-contest,
// source sentinel.
func carveOuts(in MatchInput) []string {
	var notes []string
	if in.Red.Suspended || in.Blue.Suspended {
		notes = append(notes, NoteSuspended)
	}
	if in.Red.Winner && in.Blue.Winner {
		notes = append(notes, NoteWinnerMissing)
	}
	if isNoContest(in.Red.Note) || isNoContest(in.Blue.Note) {
		notes = append(notes, NoteNoContest)
	}
	if in.Red.Note == SentinelUnrecorded || in.Blue.Note == SentinelUnrecorded {
		notes = append(notes, NoteSourceUnrecorded)
	}
	return notes
}

func isNoContest(note string) bool {
	if note == "" {
		return false
	}
	lowered := strings.ToLower(note)
	for _, marker := range noContestMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func joinNotes(existing string, more ...string) string {
	parts := make([]string, 0, len(more)+1)
	if existing != "" {
		parts = append(parts, existing)
	}
	parts = append(parts, more...)
	return strings.Join(parts, "; ")
}
