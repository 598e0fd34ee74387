package application

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/events"
	"github.com/travel-golobe/service-booking/pkg/metrics"
)

// SweeperOptions configures the expiration sweeper.
type SweeperOptions struct {
	// TTL is the age after which an unconfirmed booking is expired.
	TTL      time.Duration
	Interval time.Duration
	// IncludeConfirmed also expires confirmed bookings older than TTL.
	IncludeConfirmed bool
	// PurgeAfter deletes cancelled and expired bookings this long after their
	// last update. Zero keeps them forever.
	PurgeAfter time.Duration
	// BatchSize caps how many bookings of one kind a single run expires.
	BatchSize int
}

// DefaultSweeperOptions returns the production defaults.
func DefaultSweeperOptions() SweeperOptions {
	return SweeperOptions{
		TTL:       24 * time.Hour,
		Interval:  time.Hour,
		BatchSize: 500,
	}
}

// KindSweepResult reports one resource kind's share of a sweep.
type KindSweepResult struct {
	Kind    string `json:"kind"`
	Expired int    `json:"expired"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// SweepReport summarizes one sweeper run.
type SweepReport struct {
	StartedAt time.Time         `json:"started_at"`
	Cutoff    time.Time         `json:"cutoff"`
	Kinds     []KindSweepResult `json:"kinds"`
	Purged    int64             `json:"purged"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Expired returns the total number of bookings expired across kinds.
func (r SweepReport) Expired() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Expired
	}
	return n
}

// ExpirationSweeper reclaims stale bookings: it marks them EXPIRED and
// returns their capacity. Each booking is expired in its own transaction and
// each kind is swept independently, so one failure never blocks the rest.
type ExpirationSweeper struct {
	tx        bookingDomain.TxManager
	bookings  bookingDomain.BookingRepository
	publisher EventPublisher
	audit     AuditRecorder
	metrics   *metrics.BookingMetrics
	opts      SweeperOptions
	logger    *zap.Logger
	now       func() time.Time

	// runMu serializes runs triggered by the ticker, HTTP and Kafka.
	runMu sync.Mutex
}

// NewExpirationSweeper creates a new ExpirationSweeper. publisher and audit may be nil.
func NewExpirationSweeper(
	tx bookingDomain.TxManager,
	bookings bookingDomain.BookingRepository,
	publisher EventPublisher,
	audit AuditRecorder,
	m *metrics.BookingMetrics,
	opts SweeperOptions,
	logger *zap.Logger,
) *ExpirationSweeper {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSweeperOptions().BatchSize
	}
	return &ExpirationSweeper{
		tx:        tx,
		bookings:  bookings,
		publisher: publisher,
		audit:     audit,
		metrics:   m,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs a sweep every Interval until ctx is cancelled.
func (s *ExpirationSweeper) Start(ctx context.Context) {
	if s.opts.Interval <= 0 {
		s.logger.Info("expiration sweeper disabled")
		return
	}
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("expiration sweeper started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("ttl", s.opts.TTL),
		zap.Bool("include_confirmed", s.opts.IncludeConfirmed),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires stale bookings of the given kinds, or of every kind when none is given.
func (s *ExpirationSweeper) Sweep(ctx context.Context, kinds ...inventory.ResourceKind) SweepReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if len(kinds) == 0 {
		kinds = inventory.AllKinds
	}
	started := s.now().UTC()
	report := SweepReport{
		StartedAt: started,
		Cutoff:    started.Add(-s.opts.TTL),
	}

	for _, kind := range kinds {
		report.Kinds = append(report.Kinds, s.sweepKind(ctx, kind, report.Cutoff))
	}

	if s.opts.PurgeAfter > 0 {
		purged, err := s.bookings.PurgeFinalized(ctx, started.Add(-s.opts.PurgeAfter))
		if err != nil {
			s.logger.Error("failed to purge finalized bookings", zap.Error(err))
		}
		report.Purged = purged
	}

	report.Duration = time.Since(started)
	s.metrics.SweepDuration.Observe(report.Duration.Seconds())
	s.logger.Info("expiration sweep finished",
		zap.Int("expired", report.Expired()),
		zap.Int64("purged", report.Purged),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// sweepKind pages through stale bookings of one kind until BatchSize of them
// expire or the scan runs out. The cursor moves past bookings that fail, so
// a run of persistent failures never hides newer stale bookings.
func (s *ExpirationSweeper) sweepKind(ctx context.Context, kind inventory.ResourceKind, cutoff time.Time) KindSweepResult {
	result := KindSweepResult{Kind: kind.String()}

	var cursor bookingDomain.StaleCursor
	for result.Expired < s.opts.BatchSize {
		stale, err := s.bookings.FindStale(ctx, kind, s.statuses(), cutoff, cursor, s.opts.BatchSize)
		if err != nil {
			s.logger.Error("failed to find stale bookings", zap.String("kind", kind.String()), zap.Error(err))
			s.metrics.SweepErrors.WithLabelValues(kind.String()).Inc()
			result.Error = err.Error()
			return result
		}

		for _, candidate := range stale {
			if ctx.Err() != nil {
				result.Error = ctx.Err().Error()
				return result
			}
			if result.Expired >= s.opts.BatchSize {
				return result
			}
			expired, err := s.expire(ctx, candidate.ID(), cutoff)
			if err != nil {
				result.Failed++
				s.metrics.SweepErrors.WithLabelValues(kind.String()).Inc()
				s.logger.Error("failed to expire booking",
					zap.String("booking_id", candidate.ID().String()),
					zap.String("kind", kind.String()),
					zap.Error(err),
				)
				continue
			}
			if expired {
				result.Expired++
			}
		}

		if len(stale) < s.opts.BatchSize {
			break
		}
		cursor = bookingDomain.CursorAfter(stale[len(stale)-1])
	}
	return result
}

// expire marks one booking EXPIRED and releases its capacity. It reports
// false when the booking stopped being eligible since it was selected.
func (s *ExpirationSweeper) expire(ctx context.Context, bookingID uuid.UUID, cutoff time.Time) (bool, error) {
	var (
		bk   *bookingDomain.Booking
		from bookingDomain.BookingStatus
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		current, err := uow.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !slices.Contains(s.statuses(), current.Status()) || !current.CreatedAt().Before(cutoff) {
			return nil
		}

		from = current.Status()
		if err := current.Expire(s.opts.IncludeConfirmed); err != nil {
			return err
		}
		current.IncrementVersion()
		if err := uow.Bookings().Update(ctx, current); err != nil {
			return err
		}
		if err := releaseAll(ctx, uow.Ledger(), current); err != nil {
			return err
		}
		bk = current
		return nil
	})
	if err != nil || bk == nil {
		return false, err
	}

	s.metrics.BookingsExpired.WithLabelValues(bk.Kind().String()).Inc()
	publishEvent(ctx, s.publisher, s.logger, events.TopicBookingEvents, events.BookingExpired, bk.ID().String(), events.BookingExpiredEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		Kind:          bk.Kind().String(),
		PrevStatus:    from.String(),
		OccurredAt:    s.now().UTC(),
	})
	if err := s.audit.Record(ctx, newAuditEntry(bk, AuditExpired, from, nil)); err != nil {
		s.logger.Warn("failed to record booking audit", zap.String("booking_id", bk.ID().String()), zap.Error(err))
	}
	return true, nil
}

func (s *ExpirationSweeper) statuses() []bookingDomain.BookingStatus {
	if s.opts.IncludeConfirmed {
		return []bookingDomain.BookingStatus{bookingDomain.StatusPending, bookingDomain.StatusConfirmed}
	}
	return []bookingDomain.BookingStatus{bookingDomain.StatusPending}
}
