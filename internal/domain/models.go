package domain

import (
	"time"

	"github.com/google/uuid"
)

type Athlete struct {
	ID             uuid.UUID
	SourceID       string
	Name           string
	NormalizedName string
	Slug           string
	PersonalName   string
	Country        string
	CountryNote    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Team struct {
	ID             uuid.UUID
	Name           string
	NormalizedName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Event struct {
	ID             uuid.UUID
	SourceID       string
	Name           string
	NormalizedName string
	Slug           string
	MedalsOnly     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Division is deduplicated by the five-tuple.
type Division struct {
	ID         uuid.UUID
	Discipline Discipline
	Gender     Gender
	Age        Age
	Belt       Belt
	Weight     Weight
}

type Match struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	DivisionID      uuid.UUID
	HappenedAt      time.Time
	Rated           bool
	RatedWinnerOnly bool
	FightNumber     int
	Location        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MatchParticipant is one side of a match; exactly two per match, one red
// and one blue.
type MatchParticipant struct {
	ID              uuid.UUID
	MatchID         uuid.UUID
	AthleteID       uuid.UUID
	TeamID          uuid.UUID
	Red             bool
	Seed            int
	Winner          bool
	Note            string // source-provided, e.g. a disqualification reason
	RatingNote      string // engine-written carve-out explanation
	StartRating     float64
	EndRating       float64
	StartMatchCount int
	EndMatchCount   int
	WeightForOpen   Weight // presumed weight when the division is open class
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Medal struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	DivisionID  uuid.UUID
	AthleteID   uuid.UUID
	Place       int
	DefaultGold bool
	AwardedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Suspension is keyed by display name; it is resolved to an athlete via
// normalized-name lookup at recompute time.
type Suspension struct {
	ID          uuid.UUID
	AthleteName string
	StartDate   time.Time
	EndDate     time.Time
}

func (s Suspension) Covers(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

type ManualPromotion struct {
	ID         uuid.UUID
	AthleteID  uuid.UUID
	Belt       Belt
	PromotedAt time.Time
}

// AthleteRating is one row of the materialized ranking board. The synthetic
// weight "" is the pound-for-pound partition.
type AthleteRating struct {
	ID              uuid.UUID
	AthleteID       uuid.UUID
	Discipline      Discipline
	Gender          Gender
	Age             Age
	Belt            Belt
	Weight          Weight
	Rating          float64
	MatchHappenedAt time.Time
	Rank            int
	Percentile      float64
	MatchCount      int

	PreviousRating     *float64
	PreviousRank       *int
	PreviousMatchCount *int
	PreviousPercentile *float64

	CreatedAt time.Time
}

type AthleteRatingAverage struct {
	ID         uuid.UUID
	Discipline Discipline
	Gender     Gender
	Age        Age
	Belt       Belt
	Weight     Weight
	Rating     float64
	CreatedAt  time.Time
}

// LiveRating is a short-lived projected rating written during an in-progress
// event. Rows age out after three days.
type LiveRating struct {
	ID            string // nanoid
	AthleteID     uuid.UUID
	Discipline    Discipline
	DivisionID    uuid.UUID
	EndRating     float64
	EndMatchCount int
	HappenedAt    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RegistrationLink struct {
	ID      uuid.UUID
	EventID uuid.UUID
	URL     string
}

// Competitor is an imported registration entry for an upcoming division.
type Competitor struct {
	ID                 uuid.UUID
	RegistrationLinkID uuid.UUID
	DivisionID         uuid.UUID
	AthleteID          uuid.UUID
	Name               string
	Team               string
	Seed               int
}
