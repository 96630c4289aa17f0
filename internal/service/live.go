package service

import (
	"context"
	"fmt"
	"time"

	"grappling-rank/internal/constants"
	"grappling-rank/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// BracketFeed supplies scraped brackets for an in-progress event. The
// scraper behind it lives outside this module.
type BracketFeed interface {
	FetchBrackets(ctx context.Context, eventID uuid.UUID) ([]FeedBracket, error)
}

// FeedBracket is one division's scraped state.
type FeedBracket struct {
	EventID     uuid.UUID
	Division    domain.Division
	Competitors []domain.Competitor
	Matches     []BracketMatch
}

// LiveUpdater runs the bracket projector against a feed during an event.
// Updates are fire-and-forget and idempotent; their only persistent effect
// is overwriting live-rating rows.
type LiveUpdater struct {
	bracket *BracketService
	feed    BracketFeed
	logger  zerolog.Logger
}

func NewLiveUpdater(bracket *BracketService, feed BracketFeed, logger zerolog.Logger) *LiveUpdater {
	return &LiveUpdater{bracket: bracket, feed: feed, logger: logger}
}

// Poll fetches the event's brackets, projects each and records the live
// ratings. Feed fetches are retried with exponential backoff.
func (u *LiveUpdater) Poll(ctx context.Context, eventID uuid.UUID) error {
	var brackets []FeedBracket

	backoff := retry.WithMaxRetries(constants.FeedMaxRetries, retry.NewExponential(constants.FeedRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetchCtx, cancel := context.WithTimeout(ctx, constants.FeedTimeout)
		defer cancel()

		var err error
		brackets, err = u.feed.FetchBrackets(fetchCtx, eventID)
		if err != nil {
			u.logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("bracket feed fetch failed, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fetch brackets for event %s: %w", eventID, err)
	}

	for _, b := range brackets {
		proj, err := u.bracket.Project(ctx, b.EventID, b.Division, b.Competitors, b.Matches)
		if err != nil {
			u.logger.Error().Err(err).
				Str("division_id", b.Division.ID.String()).
				Msg("bracket projection failed")
			continue
		}
		if err := u.bracket.RecordLive(ctx, proj); err != nil {
			u.logger.Error().Err(err).
				Str("division_id", b.Division.ID.String()).
				Msg("failed to record live ratings")
		}
	}
	return nil
}

// Watch polls the event on a fixed interval until the context ends. Poll
// failures are logged and the next tick tries again.
func (u *LiveUpdater) Watch(ctx context.Context, eventID uuid.UUID) {
	ticker := time.NewTicker(constants.LivePollInterval)
	defer ticker.Stop()

	for {
		if err := u.Poll(ctx, eventID); err != nil {
			u.logger.Error().Err(err).Str("event_id", eventID.String()).Msg("live update failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
