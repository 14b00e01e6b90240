package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/ddb"
	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/validate"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// Notifier delivers notifications to the outbound path.
type Notifier interface {
	Publish(ctx context.Context, n wire.Notification) error
}

// Aggregator merges lifecycle events into the status store and emits
// per-event and batch-completed notifications.
type Aggregator struct {
	store    Store
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

// NewAggregator builds an Aggregator. ttl is the record retention window.
func NewAggregator(store Store, notifier Notifier, ttl time.Duration) *Aggregator {
	return &Aggregator{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Result counts the outcome of one delivery of events.
type Result struct {
	Processed int
	Failed    int
}

// ProcessEvents applies each event in order. One bad event never aborts the
// rest of the delivery; failures are counted and logged.
func (a *Aggregator) ProcessEvents(ctx context.Context, events []wire.LifecycleEvent) Result {
	var res Result
	for _, ev := range events {
		if err := a.processEvent(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("event_type", ev.EventType).
				Str("batch_id", ev.BatchID).
				Str("item_id", ev.ItemID).
				Msg("event processing failed")
			res.Failed++
			continue
		}
		res.Processed++
	}
	return res
}

func (a *Aggregator) processEvent(ctx context.Context, ev wire.LifecycleEvent) error {
	if err := validate.LifecycleEvent(ev); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	target, err := statusForEvent(ev)
	if err != nil {
		return err
	}

	existing, err := a.store.Get(ctx, ev.BatchID, ev.ItemID)
	if err != nil {
		return err
	}

	merged := a.merge(existing, ev, target)
	if err := a.store.Put(ctx, merged); err != nil {
		return err
	}

	a.notifyEvent(ctx, ev)
	a.checkBatchComplete(ctx, ev.BatchID)
	return nil
}

// merge computes the stored record for an event. Status only moves forward in
// priority order, data is never replaced by an empty payload, and TTL and
// last_updated are refreshed unconditionally. Applying the same event twice
// yields the same record, which is what makes at-least-once delivery safe.
func (a *Aggregator) merge(existing *models.BatchItemRecord, ev wire.LifecycleEvent, target models.ItemStatus) models.BatchItemRecord {
	now := a.now().UTC()
	rec := models.BatchItemRecord{
		BatchID:     ev.BatchID,
		ItemID:      ev.ItemID,
		Status:      target,
		UserID:      ev.UserID,
		ClaimID:     ev.ClaimID,
		Data:        ev.Data,
		LastUpdated: now.Format(time.RFC3339),
		TTL:         ddb.ExpiryFrom(now, a.ttl),
	}
	if existing == nil {
		return rec
	}

	if existing.Status.Priority() > target.Priority() {
		rec.Status = existing.Status
	}
	if len(ev.Data) == 0 {
		rec.Data = existing.Data
	}
	if rec.UserID == "" {
		rec.UserID = existing.UserID
	}
	if rec.ClaimID == "" {
		rec.ClaimID = existing.ClaimID
	}
	return rec
}

// notifyEvent emits the per-event notification. Send failures are logged
// only; the stored status is already persisted and stands.
func (a *Aggregator) notifyEvent(ctx context.Context, ev wire.LifecycleEvent) {
	n := wire.Notification{
		NotificationID:   uuid.NewString(),
		MessageType:      wire.MessageTypeNotification,
		NotificationType: ev.EventType,
		BatchID:          ev.BatchID,
		ItemID:           ev.ItemID,
		UserID:           ev.UserID,
		ClaimID:          ev.ClaimID,
		Timestamp:        a.now().UnixMilli(),
		Data:             ev.Data,
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	if err := a.notifier.Publish(ctx, n); err != nil {
		log.Warn().Err(err).Str("batch_id", ev.BatchID).Str("item_id", ev.ItemID).
			Msg("failed to publish event notification")
	}
}

// checkBatchComplete re-queries the whole batch and emits one summary when
// every record is terminal. There is no dedup guard: under concurrent
// writers the summary can fire more than once, and consumers are expected to
// tolerate at-least-once delivery.
func (a *Aggregator) checkBatchComplete(ctx context.Context, batchID string) {
	records, err := a.store.ListBatch(ctx, batchID)
	if err != nil {
		log.Warn().Err(err).Str("batch_id", batchID).Msg("completion check failed")
		return
	}
	if len(records) == 0 {
		return
	}

	var completed, failed int
	var userID, claimID string
	for _, rec := range records {
		switch rec.Status {
		case models.ItemCompleted:
			completed++
		case models.ItemFailed:
			failed++
		default:
			return // batch still in flight
		}
		if userID == "" {
			userID = rec.UserID
		}
		if claimID == "" {
			claimID = rec.ClaimID
		}
	}

	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, map[string]any{
			"itemId": rec.ItemID,
			"status": rec.Status,
		})
	}

	n := wire.Notification{
		NotificationID:   uuid.NewString(),
		MessageType:      wire.MessageTypeNotification,
		NotificationType: wire.NotificationBatchCompleted,
		BatchID:          batchID,
		UserID:           userID,
		ClaimID:          claimID,
		Timestamp:        a.now().UnixMilli(),
		Data: map[string]any{
			"itemCount":      len(records),
			"completedCount": completed,
			"failedCount":    failed,
			"items":          items,
		},
	}
	if err := a.notifier.Publish(ctx, n); err != nil {
		log.Warn().Err(err).Str("batch_id", batchID).Msg("failed to publish batch summary")
	}
}

// statusForEvent maps an event type to its target status. Events that report
// an outcome carry a success flag in their payload.
func statusForEvent(ev wire.LifecycleEvent) (models.ItemStatus, error) {
	switch ev.EventType {
	case "file_uploaded", "uploaded":
		return models.ItemPending, nil
	case "analysis_started", "queued":
		return models.ItemProcessing, nil
	case "file_processed", "processed", "analysis_completed":
		if success, ok := ev.Data["success"].(bool); ok && !success {
			return models.ItemFailed, nil
		}
		return models.ItemCompleted, nil
	default:
		return "", fmt.Errorf("unknown event type %q", ev.EventType)
	}
}
