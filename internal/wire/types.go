// Package wire contains the message types carried on queues and sockets.
package wire

// LifecycleEvent is one inbound domain event for a tracked item.
type LifecycleEvent struct {
	EventType string         `json:"eventType"`
	BatchID   string         `json:"batchId"`
	ItemID    string         `json:"itemId"`
	UserID    string         `json:"userId,omitempty"`
	ClaimID   string         `json:"claimId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// MessageTypeNotification tags every outbound notification message.
const MessageTypeNotification = "notification"

// NotificationBatchCompleted is emitted once all items of a batch are terminal.
const NotificationBatchCompleted = "batch_completed"

// Notification is the outbound message routed to connected clients.
type Notification struct {
	NotificationID   string         `json:"notificationId"`
	MessageType      string         `json:"messageType"`
	NotificationType string         `json:"notificationType"`
	BatchID          string         `json:"batchId,omitempty"`
	ItemID           string         `json:"itemId,omitempty"`
	UserID           string         `json:"userId,omitempty"`
	ClaimID          string         `json:"claimId,omitempty"`
	Timestamp        int64          `json:"timestamp"`
	Data             map[string]any `json:"data"`
}

// ItemDetail is one claim item inside a report payload.
type ItemDetail struct {
	ItemID          string  `json:"itemId"`
	Number          int     `json:"number"`
	Name            string  `json:"name"`
	RoomName        string  `json:"roomName,omitempty"`
	Quantity        int     `json:"quantity"`
	ReplacementCost float64 `json:"replacementCost"`
	Description     string  `json:"description,omitempty"`
}

// FileRef points at one stored claim file and its item association, if any.
type FileRef struct {
	FileID   string `json:"fileId"`
	S3Key    string `json:"s3Key"`
	FileName string `json:"fileName"`
	ItemID   string `json:"itemId,omitempty"`
}

// RoomGroup collects the items of one room.
type RoomGroup struct {
	RoomName string       `json:"roomName"`
	Items    []ItemDetail `json:"items"`
}

// ReportData is the structured payload built by stage 1 and carried through
// the rest of the pipeline.
type ReportData struct {
	ClaimID       string      `json:"claimId"`
	ClaimTitle    string      `json:"claimTitle"`
	HouseholdID   string      `json:"householdId"`
	RecipientName string      `json:"recipientName"`
	Rooms         []RoomGroup `json:"rooms"`
	ClaimFiles    []FileRef   `json:"claimFiles"`
}

// Items flattens the room groups in room order.
func (d ReportData) Items() []ItemDetail {
	var items []ItemDetail
	for _, r := range d.Rooms {
		items = append(items, r.Items...)
	}
	return items
}

// AggregateRequest starts the pipeline for one report.
type AggregateRequest struct {
	ReportID string `json:"reportId"`
}

// OrganizeRequest is forwarded from stage 1 to stage 2.
type OrganizeRequest struct {
	ReportID     string     `json:"reportId"`
	ReportData   ReportData `json:"reportData"`
	EmailAddress string     `json:"emailAddress"`
}

// PackageRequest is forwarded from stage 2 to stage 3.
type PackageRequest struct {
	ReportID     string     `json:"reportId"`
	ReportDir    string     `json:"reportDir"`
	ReportData   ReportData `json:"reportData"`
	EmailAddress string     `json:"emailAddress"`
}

// NotifyRequest is forwarded from stage 3 to the email worker.
type NotifyRequest struct {
	ReportID      string `json:"reportId"`
	PresignedURL  string `json:"presignedUrl"`
	EmailAddress  string `json:"email"`
	RecipientName string `json:"recipientName"`
	ClaimTitle    string `json:"claimTitle"`
}

// ClientMessage is the client→server websocket envelope.
type ClientMessage struct {
	Action  string `json:"action"`
	ClaimID string `json:"claimId,omitempty"`
}

// ServerPayload is the server→client websocket payload.
type ServerPayload struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Client message actions handled by the fan-out service.
const (
	ActionPing      = "ping"
	ActionSubscribe = "subscribe"
)
