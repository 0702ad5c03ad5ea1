// Package worker runs the stuck bill sweep. A paid bill whose
// production partially failed stays SOLDOUT; the sweep periodically
// re-runs production for those bills so transient handler failures
// heal without operator action.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/telemetry"
)

// Config holds sweep worker configuration.
type Config struct {
	// Interval is how often to look for stuck bills.
	Interval time.Duration

	// MinAge keeps the sweep off bills whose synchronous production
	// attempt may still be running.
	MinAge time.Duration

	// MaxConcurrency is the number of bills redriven in parallel.
	MaxConcurrency int
}

// Bills is the slice of the bill service the sweep drives.
type Bills interface {
	Get(ctx context.Context, billID int64) (*domain.Bill, error)
	ListStuck(ctx context.Context, status domain.BillStatus, olderThan time.Time) ([]domain.Bill, error)
	TransitionLocked(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error)
	WithLock(ctx context.Context, billID int64, fn func() error) error
}

// Producer runs post payment production for a paid bill.
type Producer interface {
	RunPostpay(ctx context.Context, bill *domain.Bill) (*production.Result, error)
}

// Sweep redrives production on SOLDOUT bills.
type Sweep struct {
	config   Config
	bills    Bills
	producer Producer
	logger   zerolog.Logger
}

func NewSweep(bills Bills, producer Producer, config Config, logger zerolog.Logger) *Sweep {
	if config.Interval == 0 {
		config.Interval = 5 * time.Minute
	}
	if config.MinAge == 0 {
		config.MinAge = 10 * time.Minute
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}

	return &Sweep{
		config:   config,
		bills:    bills,
		producer: producer,
		logger:   logger.With().Str("component", "sweep").Logger(),
	}
}

// Start runs the sweep until the context is cancelled.
func (s *Sweep) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("min_age", s.config.MinAge).
		Int("max_concurrency", s.config.MaxConcurrency).
		Msg("sweep starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweep shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweep) RunOnce(ctx context.Context) {
	if telemetry.Business != nil {
		telemetry.Business.SweepRuns.Inc()
	}

	cutoff := time.Now().Add(-s.config.MinAge)
	stuck, err := s.bills.ListStuck(ctx, domain.BillStatusSoldOut, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing stuck bills failed")
		return
	}
	if len(stuck) == 0 {
		return
	}

	s.logger.Info().Int("count", len(stuck)).Msg("redriving stuck bills")

	sem := make(chan struct{}, s.config.MaxConcurrency)
	var wg sync.WaitGroup
	for i := range stuck {
		billID := stuck[i].ID
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.redrive(ctx, billID)
		}()
	}
	wg.Wait()
}

// redrive re-runs production for one bill under its bill lock. The
// bill is reloaded under the lock because a gateway callback may have
// finished it between the listing and now.
func (s *Sweep) redrive(ctx context.Context, billID int64) {
	err := s.bills.WithLock(ctx, billID, func() error {
		bill, err := s.bills.Get(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Status != domain.BillStatusSoldOut {
			return nil
		}

		result, err := s.producer.RunPostpay(ctx, bill)
		if err != nil {
			return err
		}
		if !result.Complete() {
			s.logger.Warn().
				Int64("bill_id", billID).
				Int("failed_items", len(result.Failed)).
				Msg("production still incomplete")
			return nil
		}

		if _, err := s.bills.TransitionLocked(ctx, billID, domain.BillStatusComplete); err != nil {
			return err
		}
		if telemetry.Business != nil {
			telemetry.Business.SweepRedriven.Inc()
		}
		s.logger.Info().Int64("bill_id", billID).Msg("bill completed by sweep")
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("bill_id", billID).Msg("redrive failed")
	}
}
