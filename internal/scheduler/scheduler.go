// Package scheduler owns the daemon's recurring jobs: the hourly
// live-rating expiry and the nightly board rerank.
package scheduler

import (
	"context"

	"grappling-rank/internal/constants"
	"grappling-rank/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Scheduler struct {
	cron    *cron.Cron
	board   *service.BoardService
	bracket *service.BracketService
	logger  zerolog.Logger
}

func New(board *service.BoardService, bracket *service.BracketService, logger zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		board:   board,
		bracket: bracket,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(constants.LiveExpirySchedule, s.expireLiveRatings); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(constants.RerankSchedule, s.rerank); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
	return nil
}

// Stop halts scheduling and waits for any running job.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) expireLiveRatings() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := s.bracket.ExpireLive(ctx); err != nil {
		s.logger.Error().Err(err).Msg("live rating expiry failed")
	}
}

func (s *Scheduler) rerank() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	if err := s.board.RebuildAll(ctx, nil); err != nil {
		s.logger.Error().Err(err).Msg("nightly rerank failed")
	}
}

var Module = fx.Provide(New)
