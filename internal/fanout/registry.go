// Package fanout routes notifications to live websocket connections.
package fanout

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kylejryan/claim-workflow-engine/internal/ddb"
	"github.com/kylejryan/claim-workflow-engine/internal/models"
)

// Registry stores live connections keyed by connection id, with a secondary
// index by user id.
type Registry interface {
	Get(ctx context.Context, connectionID string) (*models.Connection, error)
	Put(ctx context.Context, conn models.Connection) error
	Delete(ctx context.Context, connectionID string) error
	ListByUser(ctx context.Context, userID string) ([]models.Connection, error)
	ListAll(ctx context.Context) ([]models.Connection, error)
}

// DynamoRegistry is the DynamoDB implementation of Registry. The table keys
// on connection_id with a GSI1 on user_id; the ttl attribute ages out
// connections that never disconnected cleanly.
type DynamoRegistry struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoRegistry wraps a DynamoDB client and connections table name.
func NewDynamoRegistry(client *dynamodb.Client, table string) *DynamoRegistry {
	return &DynamoRegistry{client: client, table: table}
}

// Get returns one connection record, or nil when absent.
func (r *DynamoRegistry) Get(ctx context.Context, connectionID string) (*models.Connection, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"connection_id": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return nil, ddb.WrapErr(err, "failed to get connection")
	}
	if out.Item == nil {
		return nil, nil
	}

	var conn models.Connection
	if err := attributevalue.UnmarshalMap(out.Item, &conn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	return &conn, nil
}

// Put writes the connection record, replacing any previous state.
func (r *DynamoRegistry) Put(ctx context.Context, conn models.Connection) error {
	item, err := attributevalue.MarshalMap(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return ddb.WrapErr(err, "failed to put connection")
}

// Delete removes one connection record. Deleting an absent record is a no-op,
// which keeps gone-pruning idempotent.
func (r *DynamoRegistry) Delete(ctx context.Context, connectionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"connection_id": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	return ddb.WrapErr(err, "failed to delete connection")
}

// ListByUser queries GSI1 for a user's connections.
func (r *DynamoRegistry) ListByUser(ctx context.Context, userID string) ([]models.Connection, error) {
	keyCond := expression.Key("user_id").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String("GSI1"),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, ddb.WrapErr(err, "failed to query connections by user")
	}

	var conns []models.Connection
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &conns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}
	return conns, nil
}

// ListAll scans the whole table with pagination. Claim-subscription dispatch
// and broadcasts walk this; acceptable for small connection counts.
func (r *DynamoRegistry) ListAll(ctx context.Context) ([]models.Connection, error) {
	var conns []models.Connection
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ddb.WrapErr(err, "failed to scan connections")
		}
		var batch []models.Connection
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		conns = append(conns, batch...)
	}
	return conns, nil
}
