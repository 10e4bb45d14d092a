package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/dispatchledger"
	"github.com/techhind/fulfillment-api/internal/domain"
	"github.com/techhind/fulfillment-api/internal/service"
	"go.uber.org/zap"
)

// challanRecorder is the slice of the fulfillment service the sync job needs
type challanRecorder interface {
	RecordChallan(ctx context.Context, orderID uuid.UUID, event domain.ChallanEvent) (*domain.OrderDTO, error)
}

// ChallanSyncJob polls the vendor dispatch ledger and mirrors new challan
// rows into order delivery metrics. The high-water mark is the recorded_at
// of the last row applied, so a failed run is retried from the same point
// on the next tick.
type ChallanSyncJob struct {
	ledger   *dispatchledger.Client
	recorder challanRecorder
	logger   *zap.Logger

	mu         sync.Mutex
	lastSync   time.Time
	runTimeout time.Duration
}

// NewChallanSyncJob creates a sync job starting from the given watermark.
// Passing the zero time replays the full ledger history on the first run.
func NewChallanSyncJob(ledger *dispatchledger.Client, recorder challanRecorder, logger *zap.Logger, startFrom time.Time) *ChallanSyncJob {
	return &ChallanSyncJob{
		ledger:     ledger,
		recorder:   recorder,
		logger:     logger,
		lastSync:   startFrom,
		runTimeout: 2 * time.Minute,
	}
}

// Run executes one sync pass. Scheduled through Scheduler.AddJob, which
// already skips overlapping runs.
func (j *ChallanSyncJob) Run() {
	if !j.ledger.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.runTimeout)
	defer cancel()

	j.mu.Lock()
	since := j.lastSync
	j.mu.Unlock()

	events, err := j.ledger.FetchChallansSince(ctx, since)
	if err != nil {
		j.logger.Error("challan sync fetch failed",
			zap.Error(err),
			zap.Time("since", since))
		return
	}
	if len(events) == 0 {
		return
	}

	applied := 0
	skipped := 0
	watermark := since

	for _, event := range events {
		if _, err := j.recorder.RecordChallan(ctx, event.OrderID, event); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				// Ledger rows can reference orders this system has not
				// created yet. Skipped here; a manual replay resets the
				// watermark when that happens.
				j.logger.Warn("challan references unknown order",
					zap.String("order_id", event.OrderID.String()),
					zap.String("challan_no", event.EventID))
				skipped++
				continue
			}

			var deltaErr *service.InvalidDeltaError
			if errors.As(err, &deltaErr) {
				// Bad rows never become applicable; skip them for good.
				j.logger.Warn("skipping invalid challan row",
					zap.String("order_id", event.OrderID.String()),
					zap.String("challan_no", event.EventID),
					zap.String("reason", deltaErr.Reason))
				skipped++
			} else {
				j.logger.Error("challan sync apply failed, stopping pass",
					zap.Error(err),
					zap.String("order_id", event.OrderID.String()))
				j.advanceWatermark(watermark)
				return
			}
		} else {
			applied++
		}

		if event.OccurredAt.After(watermark) {
			watermark = event.OccurredAt
		}
	}

	j.advanceWatermark(watermark)

	j.logger.Info("challan sync completed",
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Time("watermark", watermark))
}

func (j *ChallanSyncJob) advanceWatermark(t time.Time) {
	j.mu.Lock()
	if t.After(j.lastSync) {
		j.lastSync = t
	}
	j.mu.Unlock()
}

// LastSync returns the current watermark
func (j *ChallanSyncJob) LastSync() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSync
}
