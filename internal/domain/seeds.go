package domain

// Seed ratings, promotion bumps, K-factor ladders and the open-class
// handicap tables. These are calibration constants for the rating policy;
// the policy itself lives in internal/rating.

var adultSeeds = map[Belt]float64{
	White:  1200,
	Blue:   1400,
	Purple: 1600,
	Brown:  1800,
	Black:  2000,
}

// masterSeedFactors scale the adult seed down for the master bands, so an
// athlete entering an older division is not seeded above its field.
var masterSeedFactors = map[Age]float64{
	AgeMaster1: 0.951075,
	AgeMaster2: 0.9376,
	AgeMaster3: 0.9241,
	AgeMaster4: 0.9106,
	AgeMaster5: 0.8971,
	AgeMaster6: 0.8836,
	AgeMaster7: 0.8701,
}

// SeedRating is the default starting rating for an athlete with no usable
// history in the given belt and age band.
func SeedRating(belt Belt, age Age) float64 {
	if belt.Rank() < White.Rank() {
		// youth belts seed in 100-point steps from grey at 800
		return 800 + 100*float64(belt.Rank())
	}
	if belt == White && age.IsYouth() {
		return 1100
	}
	seed := adultSeeds[belt]
	if f, ok := masterSeedFactors[age]; ok {
		seed *= f
	}
	return seed
}

// PromotionBump is the rating bonus applied when an athlete first competes
// at a higher belt.
func PromotionBump(to Belt) float64 {
	if to == Black {
		return 95
	}
	return 140
}

// BaseK picks the K-factor from the 3-year rated match count. Open-class
// matches with missing weight info always use the mature K.
func BaseK(ratedCount int, openUnknown bool) float64 {
	if openUnknown {
		return 32
	}
	switch {
	case ratedCount <= 4:
		return 64
	case ratedCount <= 6:
		return 48
	default:
		return 32
	}
}

// ageKModifiers dampen rating swings in the master bands.
var ageKModifiers = map[Age]float64{
	AgeMaster1: 0.8628,
	AgeMaster2: 0.8266,
	AgeMaster3: 0.7904,
	AgeMaster4: 0.7542,
	AgeMaster5: 0.7179,
	AgeMaster6: 0.6817,
	AgeMaster7: 0.6455,
}

func AgeKModifier(age Age) float64 {
	if m, ok := ageKModifiers[age]; ok {
		return m
	}
	return 1.0
}

// Ghost points granted to the lighter athlete in an open-class match, by
// weight-class gap. Indexed by min(gap, MaxWeightIndex).
var openHandicaps = map[BeltTier][9]float64{
	TierBlack: {0, 54.13, 64.47, 132.21, 168.89, 176.04, 224.28, 372.91, 435.37},
	TierColor: {0, 21.65, 38.68, 79.33, 118.22, 141.33, 190.64, 298.33, 391.83},
}

// OpenHandicap looks up the ghost points for a weight-class gap at the
// given belt tier.
func OpenHandicap(tier BeltTier, gap int) float64 {
	if gap < 0 {
		gap = -gap
	}
	if gap > MaxWeightIndex {
		gap = MaxWeightIndex
	}
	return openHandicaps[tier][gap]
}
