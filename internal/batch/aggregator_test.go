package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

type memStore struct {
	records map[string]models.BatchItemRecord
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.BatchItemRecord{}}
}

func (s *memStore) key(batchID, itemID string) string { return batchID + "/" + itemID }

func (s *memStore) Get(_ context.Context, batchID, itemID string) (*models.BatchItemRecord, error) {
	rec, ok := s.records[s.key(batchID, itemID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Put(_ context.Context, rec models.BatchItemRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.records[s.key(rec.BatchID, rec.ItemID)] = rec
	return nil
}

func (s *memStore) ListBatch(_ context.Context, batchID string) ([]models.BatchItemRecord, error) {
	var out []models.BatchItemRecord
	for _, rec := range s.records {
		if rec.BatchID == batchID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memNotifier struct {
	sent []wire.Notification
	err  error
}

func (n *memNotifier) Publish(_ context.Context, msg wire.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *memNotifier) summaries() []wire.Notification {
	var out []wire.Notification
	for _, msg := range n.sent {
		if msg.NotificationType == wire.NotificationBatchCompleted {
			out = append(out, msg)
		}
	}
	return out
}

func newTestAggregator() (*Aggregator, *memStore, *memNotifier) {
	store := newMemStore()
	notifier := &memNotifier{}
	agg := NewAggregator(store, notifier, 7*24*time.Hour)
	agg.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return agg, store, notifier
}

func uploaded(batch, item string) wire.LifecycleEvent {
	return wire.LifecycleEvent{
		EventType: "file_uploaded",
		BatchID:   batch,
		ItemID:    item,
		UserID:    "user-1",
		ClaimID:   "claim-1",
		Data:      map[string]any{"fileName": item + ".jpg"},
	}
}

func processed(batch, item string, success bool) wire.LifecycleEvent {
	return wire.LifecycleEvent{
		EventType: "file_processed",
		BatchID:   batch,
		ItemID:    item,
		Data:      map[string]any{"success": success},
	}
}

func TestProcessEventsMergeIdempotent(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	ev := processed("batch-1", "item-a", true)
	res := agg.ProcessEvents(ctx, []wire.LifecycleEvent{ev})
	require.Equal(t, 1, res.Processed)

	first := store.records["batch-1/item-a"]
	res = agg.ProcessEvents(ctx, []wire.LifecycleEvent{ev})
	require.Equal(t, 1, res.Processed)

	assert.Equal(t, first, store.records["batch-1/item-a"])
}

func TestProcessEventsMonotonicStatus(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	// Completion arrives before the upload event.
	agg.ProcessEvents(ctx, []wire.LifecycleEvent{processed("batch-1", "item-a", true)})
	agg.ProcessEvents(ctx, []wire.LifecycleEvent{uploaded("batch-1", "item-a")})

	rec := store.records["batch-1/item-a"]
	assert.Equal(t, models.ItemCompleted, rec.Status)
	// Late event data still lands; it is non-empty.
	assert.Equal(t, "item-a.jpg", rec.Data["fileName"])
}

func TestMergeKeepsDataWhenNewPayloadEmpty(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	agg.ProcessEvents(ctx, []wire.LifecycleEvent{uploaded("batch-1", "item-a")})
	agg.ProcessEvents(ctx, []wire.LifecycleEvent{{
		EventType: "analysis_started",
		BatchID:   "batch-1",
		ItemID:    "item-a",
	}})

	rec := store.records["batch-1/item-a"]
	assert.Equal(t, models.ItemProcessing, rec.Status)
	assert.Equal(t, "item-a.jpg", rec.Data["fileName"])
	assert.Equal(t, "user-1", rec.UserID)
}

func TestBadEventSkippedRestProcessed(t *testing.T) {
	agg, _, notifier := newTestAggregator()
	ctx := context.Background()

	res := agg.ProcessEvents(ctx, []wire.LifecycleEvent{
		{EventType: "file_uploaded", ItemID: "item-a"}, // missing batchId
		{EventType: "warp_drive", BatchID: "batch-1", ItemID: "item-b"},
		uploaded("batch-1", "item-c"),
	})

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "item-c", notifier.sent[0].ItemID)
}

func TestStoreErrorCountsFailedAndContinues(t *testing.T) {
	agg, store, notifier := newTestAggregator()
	ctx := context.Background()

	store.putErr = errors.New("boom")
	res := agg.ProcessEvents(ctx, []wire.LifecycleEvent{uploaded("batch-1", "item-a")})
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, notifier.sent)

	store.putErr = nil
	res = agg.ProcessEvents(ctx, []wire.LifecycleEvent{uploaded("batch-1", "item-a")})
	assert.Equal(t, 1, res.Processed)
}

func TestCompletionNotReportedWhileInFlight(t *testing.T) {
	agg, _, notifier := newTestAggregator()
	ctx := context.Background()

	agg.ProcessEvents(ctx, []wire.LifecycleEvent{
		uploaded("batch-1", "item-a"),
		uploaded("batch-1", "item-b"),
		processed("batch-1", "item-a", true),
	})

	assert.Empty(t, notifier.summaries())
}

func TestEmptyBatchNeverComplete(t *testing.T) {
	agg, _, notifier := newTestAggregator()

	agg.checkBatchComplete(context.Background(), "batch-none")
	assert.Empty(t, notifier.summaries())
}

func TestBatchCompletionScenario(t *testing.T) {
	agg, _, notifier := newTestAggregator()
	ctx := context.Background()

	agg.ProcessEvents(ctx, []wire.LifecycleEvent{
		uploaded("batch-1", "item-a"),
		uploaded("batch-1", "item-b"),
		processed("batch-1", "item-a", true),
	})
	require.Empty(t, notifier.summaries())

	agg.ProcessEvents(ctx, []wire.LifecycleEvent{processed("batch-1", "item-b", false)})

	summaries := notifier.summaries()
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, wire.MessageTypeNotification, s.MessageType)
	assert.Equal(t, "batch-1", s.BatchID)
	assert.Equal(t, 2, s.Data["itemCount"])
	assert.Equal(t, 1, s.Data["completedCount"])
	assert.Equal(t, 1, s.Data["failedCount"])
	assert.Len(t, s.Data["items"], 2)
}

func TestNotifyFailureDoesNotFailEvent(t *testing.T) {
	agg, store, notifier := newTestAggregator()
	ctx := context.Background()

	notifier.err = errors.New("queue down")
	res := agg.ProcessEvents(ctx, []wire.LifecycleEvent{uploaded("batch-1", "item-a")})

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, models.ItemPending, store.records["batch-1/item-a"].Status)
}

func TestStatusForEventTable(t *testing.T) {
	cases := []struct {
		eventType string
		data      map[string]any
		want      models.ItemStatus
	}{
		{"file_uploaded", nil, models.ItemPending},
		{"uploaded", nil, models.ItemPending},
		{"queued", nil, models.ItemProcessing},
		{"analysis_started", nil, models.ItemProcessing},
		{"file_processed", map[string]any{"success": true}, models.ItemCompleted},
		{"file_processed", map[string]any{"success": false}, models.ItemFailed},
		{"analysis_completed", nil, models.ItemCompleted},
	}
	for _, tc := range cases {
		got, err := statusForEvent(wire.LifecycleEvent{EventType: tc.eventType, Data: tc.data})
		require.NoError(t, err, tc.eventType)
		assert.Equal(t, tc.want, got, tc.eventType)
	}

	_, err := statusForEvent(wire.LifecycleEvent{EventType: "nonsense"})
	assert.Error(t, err)
}
