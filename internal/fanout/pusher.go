package fanout

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	mgmttypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// ErrGone marks a delivery attempt against a connection that no longer
// exists; the caller must prune its registry record.
var ErrGone = errors.New("connection gone")

// Pusher delivers one payload to one connection.
type Pusher interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// APIGatewayPusher posts payloads through the API Gateway Management API.
type APIGatewayPusher struct {
	client *apigatewaymanagementapi.Client
}

// NewAPIGatewayPusher wraps a management API client bound to the websocket
// callback endpoint.
func NewAPIGatewayPusher(client *apigatewaymanagementapi.Client) *APIGatewayPusher {
	return &APIGatewayPusher{client: client}
}

// Push posts the payload, mapping the gateway's gone error to ErrGone.
func (p *APIGatewayPusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	_, err := p.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err != nil {
		var gone *mgmttypes.GoneException
		if errors.As(err, &gone) {
			return fmt.Errorf("%w: %s", ErrGone, connectionID)
		}
		return fmt.Errorf("post to connection %s: %w", connectionID, err)
	}
	return nil
}
