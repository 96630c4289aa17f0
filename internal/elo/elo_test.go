package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

func TestExpected(t *testing.T) {
	t.Run("equal ratings split the score", func(t *testing.T) {
		a := Competitor{Rating: 2000, K: 32}
		b := Competitor{Rating: 2000, K: 32}

		assert.InDelta(t, 0.5, Expected(a, b), tolerance)
	})

	t.Run("symmetry", func(t *testing.T) {
		a := Competitor{Rating: 2176.04, K: 32}
		b := Competitor{Rating: 2000, K: 32}

		assert.InDelta(t, 1, Expected(a, b)+Expected(b, a), tolerance)
	})

	t.Run("400 points is roughly ten to one", func(t *testing.T) {
		a := Competitor{Rating: 1600, K: 32}
		b := Competitor{Rating: 1200, K: 32}

		assert.InDelta(t, 10.0/11.0, Expected(a, b), tolerance)
	})
}

func TestBeat(t *testing.T) {
	t.Run("equal ratings move by half the K", func(t *testing.T) {
		winner, loser := Beat(Competitor{Rating: 2000, K: 64}, Competitor{Rating: 2000, K: 64})

		assert.InDelta(t, 2032, winner.Rating, tolerance)
		assert.InDelta(t, 1968, loser.Rating, tolerance)
	})

	t.Run("zero sum with equal K", func(t *testing.T) {
		winner, loser := Beat(Competitor{Rating: 1743, K: 48}, Competitor{Rating: 1911, K: 48})

		assert.InDelta(t, 0, (winner.Rating-1743)+(loser.Rating-1911), tolerance)
	})

	t.Run("upset moves more than expected win", func(t *testing.T) {
		underdogWin, _ := Beat(Competitor{Rating: 1400, K: 32}, Competitor{Rating: 1800, K: 32})
		favoriteWin, _ := Beat(Competitor{Rating: 1800, K: 32}, Competitor{Rating: 1400, K: 32})

		assert.Greater(t, underdogWin.Rating-1400, favoriteWin.Rating-1800)
	})

	t.Run("per-side K applies to own update only", func(t *testing.T) {
		winner, loser := Beat(Competitor{Rating: 2000, K: 64}, Competitor{Rating: 2000, K: 32})

		assert.InDelta(t, 2032, winner.Rating, tolerance)
		assert.InDelta(t, 1984, loser.Rating, tolerance)
	})
}

func TestTie(t *testing.T) {
	t.Run("equal ratings do not move", func(t *testing.T) {
		a, b := Tie(Competitor{Rating: 1500, K: 32}, Competitor{Rating: 1500, K: 32})

		assert.InDelta(t, 1500, a.Rating, tolerance)
		assert.InDelta(t, 1500, b.Rating, tolerance)
	})

	t.Run("higher rated side loses points", func(t *testing.T) {
		a, b := Tie(Competitor{Rating: 1800, K: 32}, Competitor{Rating: 1400, K: 32})

		assert.Less(t, a.Rating, 1800.0)
		assert.Greater(t, b.Rating, 1400.0)
		assert.InDelta(t, 0, (a.Rating-1800)+(b.Rating-1400), tolerance)
	})
}
