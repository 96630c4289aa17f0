package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	FeedTimeout     = 10 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	// LiveRatingTTL is how long a projected live rating stays authoritative.
	LiveRatingTTL = 72 * time.Hour

	LiveExpirySchedule = "0 0 * * * *"  // hourly
	RerankSchedule     = "0 0 3 * * *"  // nightly at 03:00
	LivePollInterval   = 2 * time.Minute
)

const (
	FeedRetryBase  = 30 * time.Second
	FeedMaxRetries = 5
)

const (
	// RatedWindow is the lookback used for the K-factor maturity ladder.
	RatedWindow = 3 * 365 * 24 * time.Hour

	// ProvisionalMatchCount marks competitors that seed below everyone else.
	ProvisionalMatchCount = 4
)

const (
	ProgressLogEvery = 500
)

const (
	ShutdownTimeout = 5 * time.Second
)
