// Package models defines the data models used in the application.
package models

import "time"

// ItemStatus represents the tracked status of one item inside a batch.
type ItemStatus string

// Possible values for ItemStatus, in upgrade order.
const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)

// statusPriority orders item statuses; merges never move a record backwards.
var statusPriority = map[ItemStatus]int{
	ItemPending:    0,
	ItemProcessing: 1,
	ItemCompleted:  2,
	ItemFailed:     3,
}

// Priority returns the upgrade rank of s. Unknown statuses rank lowest.
func (s ItemStatus) Priority() int { return statusPriority[s] }

// Terminal reports whether s counts toward batch completion.
func (s ItemStatus) Terminal() bool { return s == ItemCompleted || s == ItemFailed }

// BatchItemRecord is one tracked unit of work inside a batch, stored in the
// status table keyed by (batch_id, item_id) with a per-record TTL.
type BatchItemRecord struct {
	BatchID     string         `dynamodbav:"batch_id" json:"batchId"`
	ItemID      string         `dynamodbav:"item_id" json:"itemId"`
	Status      ItemStatus     `dynamodbav:"status" json:"status"`
	UserID      string         `dynamodbav:"user_id,omitempty" json:"userId,omitempty"`
	ClaimID     string         `dynamodbav:"claim_id,omitempty" json:"claimId,omitempty"`
	Data        map[string]any `dynamodbav:"data,omitempty" json:"data,omitempty"`
	LastUpdated string         `dynamodbav:"last_updated" json:"lastUpdated"` // ISO8601
	TTL         int64          `dynamodbav:"ttl" json:"-"`                    // epoch seconds
}

// ReportStatus represents the pipeline state of a report request.
type ReportStatus string

// Report pipeline states. COMPLETED and FAILED are terminal; FAILED is
// reachable from any non-terminal state.
const (
	ReportRequested   ReportStatus = "REQUESTED"
	ReportAggregating ReportStatus = "AGGREGATING"
	ReportOrganizing  ReportStatus = "ORGANIZING"
	ReportDelivering  ReportStatus = "DELIVERING"
	ReportCompleted   ReportStatus = "COMPLETED"
	ReportFailed      ReportStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s ReportStatus) Terminal() bool { return s == ReportCompleted || s == ReportFailed }

// Report is one report-generation request and its progress.
type Report struct {
	ID           string
	UserID       string
	ClaimID      string
	Status       ReportStatus
	ReportType   string
	EmailAddress string
	S3Key        *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Connection is one live client attachment to the fan-out service.
type Connection struct {
	ConnectionID  string   `dynamodbav:"connection_id"`
	UserID        string   `dynamodbav:"user_id"`
	Subscriptions []string `dynamodbav:"subscriptions,omitempty"` // deduplicated claim ids
	ConnectedAt   string   `dynamodbav:"connected_at"`            // ISO8601
	TTL           int64    `dynamodbav:"ttl"`                     // epoch seconds
}

// Live reports whether the connection's TTL has not expired at now.
func (c Connection) Live(now time.Time) bool { return c.TTL > now.Unix() }

// Subscribed reports whether the connection's subscription set contains claimID.
func (c Connection) Subscribed(claimID string) bool {
	for _, s := range c.Subscriptions {
		if s == claimID {
			return true
		}
	}
	return false
}
