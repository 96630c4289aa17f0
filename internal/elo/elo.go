// Package elo implements the rating kernel: expected score and post-match
// ratings for two competitors with per-side K-factors. The kernel is pure;
// everything about seeding, handicaps and carve-outs lives in
// internal/rating.
package elo

import "math"

// Competitor is a rating plus the K-factor to apply to its own update.
type Competitor struct {
	Rating float64
	K      float64
}

func transformed(r float64) float64 {
	return math.Pow(10, r/400)
}

// Expected is the probability that a beats b.
// Expected(a, b) + Expected(b, a) == 1.
func Expected(a, b Competitor) float64 {
	ta := transformed(a.Rating)
	return ta / (ta + transformed(b.Rating))
}

// Beat applies a decisive result and returns the updated pair.
func Beat(winner, loser Competitor) (Competitor, Competitor) {
	winner.Rating += winner.K * (1 - Expected(winner, loser))
	loser.Rating += loser.K * (0 - Expected(loser, winner))
	return winner, loser
}

// Tie applies a draw and returns the updated pair.
func Tie(a, b Competitor) (Competitor, Competitor) {
	ea := Expected(a, b)
	a.Rating += a.K * (0.5 - ea)
	b.Rating += b.K * (0.5 - (1 - ea))
	return a, b
}
