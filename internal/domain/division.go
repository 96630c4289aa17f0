package domain

import "fmt"

type Discipline string

const (
	Gi   Discipline = "gi"
	NoGi Discipline = "nogi"
)

func ParseDiscipline(s string) (Discipline, error) {
	switch Discipline(s) {
	case Gi, NoGi:
		return Discipline(s), nil
	}
	return "", fmt.Errorf("unknown discipline %q", s)
}

func Disciplines() []Discipline {
	return []Discipline{Gi, NoGi}
}

type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case Male, Female:
		return Gender(s), nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Age is an ordered age band. Youth and juvenile sit below adult; master
// bands are older than adult and ordered among themselves.
type Age string

const (
	AgeYouth    Age = "youth"
	AgeJuvenile Age = "juvenile"
	AgeAdult    Age = "adult"
	AgeMaster1  Age = "master1"
	AgeMaster2  Age = "master2"
	AgeMaster3  Age = "master3"
	AgeMaster4  Age = "master4"
	AgeMaster5  Age = "master5"
	AgeMaster6  Age = "master6"
	AgeMaster7  Age = "master7"
)

var ageRanks = map[Age]int{
	AgeYouth:    0,
	AgeJuvenile: 1,
	AgeAdult:    2,
	AgeMaster1:  3,
	AgeMaster2:  4,
	AgeMaster3:  5,
	AgeMaster4:  6,
	AgeMaster5:  7,
	AgeMaster6:  8,
	AgeMaster7:  9,
}

func ParseAge(s string) (Age, error) {
	if _, ok := ageRanks[Age(s)]; !ok {
		return "", fmt.Errorf("unknown age division %q", s)
	}
	return Age(s), nil
}

func (a Age) Rank() int {
	return ageRanks[a]
}

func (a Age) IsYouth() bool {
	return a == AgeYouth || a == AgeJuvenile
}

// Belt is an ordered belt. Youth belts rank below white.
type Belt string

const (
	Grey   Belt = "grey"
	Yellow Belt = "yellow"
	Orange Belt = "orange"
	Green  Belt = "green"
	White  Belt = "white"
	Blue   Belt = "blue"
	Purple Belt = "purple"
	Brown  Belt = "brown"
	Black  Belt = "black"
)

var beltRanks = map[Belt]int{
	Grey:   0,
	Yellow: 1,
	Orange: 2,
	Green:  3,
	White:  4,
	Blue:   5,
	Purple: 6,
	Brown:  7,
	Black:  8,
}

func ParseBelt(s string) (Belt, error) {
	if _, ok := beltRanks[Belt(s)]; !ok {
		return "", fmt.Errorf("unknown belt %q", s)
	}
	return Belt(s), nil
}

func (b Belt) Rank() int {
	return beltRanks[b]
}

// BeltTier is the handicap tier: black belts have their own table.
type BeltTier string

const (
	TierBlack BeltTier = "black"
	TierColor BeltTier = "color"
)

func (b Belt) Tier() BeltTier {
	if b == Black {
		return TierBlack
	}
	return TierColor
}

// Weight is a weight class. The indexed classes run rooster (0) through
// ultra heavy (8); open classes carry no index.
type Weight string

const (
	Rooster     Weight = "rooster"
	LightFeather Weight = "light-feather"
	Feather     Weight = "feather"
	Light       Weight = "light"
	Middle      Weight = "middle"
	MediumHeavy Weight = "medium-heavy"
	Heavy       Weight = "heavy"
	SuperHeavy  Weight = "super-heavy"
	UltraHeavy  Weight = "ultra-heavy"
	Open        Weight = "open"
	OpenLight   Weight = "open-light"
	OpenHeavy   Weight = "open-heavy"
)

var weightIndexes = map[Weight]int{
	Rooster:      0,
	LightFeather: 1,
	Feather:      2,
	Light:        3,
	Middle:       4,
	MediumHeavy:  5,
	Heavy:        6,
	SuperHeavy:   7,
	UltraHeavy:   8,
}

// MaxWeightIndex is the last indexed class (ultra heavy).
const MaxWeightIndex = 8

func ParseWeight(s string) (Weight, error) {
	w := Weight(s)
	if _, ok := weightIndexes[w]; ok {
		return w, nil
	}
	switch w {
	case Open, OpenLight, OpenHeavy:
		return w, nil
	}
	return "", fmt.Errorf("unknown weight class %q", s)
}

func (w Weight) IsOpen() bool {
	return w == Open || w == OpenLight || w == OpenHeavy
}

// Index returns the position in the ordered weight list, false for open
// classes and the unknown (empty) weight.
func (w Weight) Index() (int, bool) {
	idx, ok := weightIndexes[w]
	return idx, ok
}
