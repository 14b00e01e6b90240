// Package queue publishes JSON messages to SQS queues.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// Publisher sends JSON bodies to SQS with string message attributes for
// downstream routing and filtering.
type Publisher struct {
	client *sqs.Client
}

// NewPublisher wraps an SQS client.
func NewPublisher(client *sqs.Client) *Publisher {
	return &Publisher{client: client}
}

// SendJSON marshals v and sends it to queueURL. Empty attribute values are
// dropped; SQS rejects empty string attributes.
func (p *Publisher) SendJSON(ctx context.Context, queueURL string, v any, attrs map[string]string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	}
	for k, val := range attrs {
		if val == "" {
			continue
		}
		if input.MessageAttributes == nil {
			input.MessageAttributes = map[string]sqstypes.MessageAttributeValue{}
		}
		input.MessageAttributes[k] = sqstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(val),
		}
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// NotificationPublisher binds a Publisher to the outbound notification queue.
type NotificationPublisher struct {
	*Publisher
	QueueURL string
}

// Publish sends one notification, carrying its routing ids as attributes.
func (p *NotificationPublisher) Publish(ctx context.Context, n wire.Notification) error {
	return p.SendJSON(ctx, p.QueueURL, n, map[string]string{
		"notificationType": n.NotificationType,
		"batchId":          n.BatchID,
		"userId":           n.UserID,
		"claimId":          n.ClaimID,
	})
}

// StagePublisher binds a Publisher to one pipeline stage queue.
type StagePublisher struct {
	*Publisher
	QueueURL string
}

// Forward sends a stage message, tagging it with reportId for filtering.
func (p *StagePublisher) Forward(ctx context.Context, reportID string, v any) error {
	return p.SendJSON(ctx, p.QueueURL, v, map[string]string{"reportId": reportID})
}
