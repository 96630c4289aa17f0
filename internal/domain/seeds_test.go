package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedRating(t *testing.T) {
	t.Run("adult ladder", func(t *testing.T) {
		assert.Equal(t, 1200.0, SeedRating(White, AgeAdult))
		assert.Equal(t, 1400.0, SeedRating(Blue, AgeAdult))
		assert.Equal(t, 1600.0, SeedRating(Purple, AgeAdult))
		assert.Equal(t, 1800.0, SeedRating(Brown, AgeAdult))
		assert.Equal(t, 2000.0, SeedRating(Black, AgeAdult))
	})

	t.Run("master bands scale down", func(t *testing.T) {
		assert.InDelta(t, 1902.15, SeedRating(Black, AgeMaster1), 0.001)
		assert.Greater(t, SeedRating(Black, AgeMaster1), SeedRating(Black, AgeMaster2))
		assert.Greater(t, SeedRating(Black, AgeMaster6), SeedRating(Black, AgeMaster7))
	})

	t.Run("youth belts step by 100 from grey", func(t *testing.T) {
		assert.Equal(t, 800.0, SeedRating(Grey, AgeYouth))
		assert.Equal(t, 900.0, SeedRating(Yellow, AgeYouth))
		assert.Equal(t, 1000.0, SeedRating(Orange, AgeYouth))
		assert.Equal(t, 1100.0, SeedRating(Green, AgeYouth))
	})

	t.Run("white at youth ages sits below adult white", func(t *testing.T) {
		assert.Equal(t, 1100.0, SeedRating(White, AgeYouth))
		assert.Equal(t, 1100.0, SeedRating(White, AgeJuvenile))
		assert.Equal(t, 1200.0, SeedRating(White, AgeAdult))
	})
}

func TestPromotionBump(t *testing.T) {
	assert.Equal(t, 95.0, PromotionBump(Black))
	assert.Equal(t, 140.0, PromotionBump(Purple))
	assert.Equal(t, 140.0, PromotionBump(Blue))
}

func TestBaseK(t *testing.T) {
	t.Run("maturity ladder", func(t *testing.T) {
		assert.Equal(t, 64.0, BaseK(0, false))
		assert.Equal(t, 64.0, BaseK(4, false))
		assert.Equal(t, 48.0, BaseK(5, false))
		assert.Equal(t, 48.0, BaseK(6, false))
		assert.Equal(t, 32.0, BaseK(7, false))
		assert.Equal(t, 32.0, BaseK(40, false))
	})

	t.Run("unknown open weight forces mature K", func(t *testing.T) {
		assert.Equal(t, 32.0, BaseK(0, true))
	})
}

func TestAgeKModifier(t *testing.T) {
	assert.Equal(t, 1.0, AgeKModifier(AgeAdult))
	assert.Equal(t, 1.0, AgeKModifier(AgeYouth))
	assert.InDelta(t, 0.8628, AgeKModifier(AgeMaster1), 1e-9)
	assert.InDelta(t, 0.6455, AgeKModifier(AgeMaster7), 1e-9)
}

func TestOpenHandicap(t *testing.T) {
	t.Run("no gap no handicap", func(t *testing.T) {
		assert.Equal(t, 0.0, OpenHandicap(TierBlack, 0))
		assert.Equal(t, 0.0, OpenHandicap(TierColor, 0))
	})

	t.Run("black tier table", func(t *testing.T) {
		assert.InDelta(t, 176.04, OpenHandicap(TierBlack, 5), 1e-9)
		assert.InDelta(t, 435.37, OpenHandicap(TierBlack, 8), 1e-9)
	})

	t.Run("gap sign and overflow", func(t *testing.T) {
		assert.Equal(t, OpenHandicap(TierColor, 3), OpenHandicap(TierColor, -3))
		assert.Equal(t, OpenHandicap(TierBlack, 8), OpenHandicap(TierBlack, 12))
	})

	t.Run("color tier is gentler", func(t *testing.T) {
		for gap := 1; gap <= 8; gap++ {
			assert.Less(t, OpenHandicap(TierColor, gap), OpenHandicap(TierBlack, gap))
		}
	})
}
