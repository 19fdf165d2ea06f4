package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hrdesk/helpdesk-service/internal/observability"
	"github.com/hrdesk/helpdesk-service/internal/service"
)

// Sweeper periodically expires stale reassignment offers and retries
// assignment for parked tickets. Each run is independent; a failed run is
// logged and the next one starts fresh.
type Sweeper struct {
	cron        *cron.Cron
	assignments *service.AssignmentService
	metrics     *observability.Metrics
	logger      *zap.Logger
	timeout     time.Duration
}

// NewSweeper builds the sweeper without starting it.
func NewSweeper(assignments *service.AssignmentService, metrics *observability.Metrics, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:        cron.New(),
		assignments: assignments,
		metrics:     metrics,
		logger:      logger,
		timeout:     30 * time.Second,
	}
}

// Start schedules the sweep on the given cron spec and kicks off the
// scheduler goroutine.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("assignment sweeper started", zap.String("spec", spec))
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("assignment sweeper stopped")
}

// RunOnce executes a single sweep pass, used by Start via cron and
// directly at boot so parked work is not stuck until the first tick.
func (s *Sweeper) RunOnce(ctx context.Context) {
	result, err := s.assignments.Sweep(ctx)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSweep("expired_offers", result.ExpiredOffers)
		s.metrics.RecordSweep("pending_assigned", result.PendingAssigned)
	}
	if result.ExpiredOffers > 0 || result.PendingAssigned > 0 {
		s.logger.Info("sweep completed",
			zap.Int("expired_offers", result.ExpiredOffers),
			zap.Int("pending_scanned", result.PendingScanned),
			zap.Int("pending_assigned", result.PendingAssigned))
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.RunOnce(ctx)
}
