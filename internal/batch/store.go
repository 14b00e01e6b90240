// Package batch aggregates item lifecycle events into per-batch status.
package batch

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

// Store persists batch item records keyed by (batch_id, item_id).
type Store interface {
	Get(ctx context.Context, batchID, itemID string) (*models.BatchItemRecord, error)
	Put(ctx context.Context, rec models.BatchItemRecord) error
	ListBatch(ctx context.Context, batchID string) ([]models.BatchItemRecord, error)
}

// DynamoStore is the DynamoDB implementation of Store. The table uses
// batch_id as partition key, item_id as sort key, and a ttl attribute for
// expiry; records are never deleted by application logic.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoStore wraps a DynamoDB client and status table name.
func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// Get returns the record for (batchID, itemID), or nil when absent.
func (s *DynamoStore) Get(ctx context.Context, batchID, itemID string) (*models.BatchItemRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"batch_id": &types.AttributeValueMemberS{Value: batchID},
			"item_id":  &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		return nil, ddb.WrapErr(err, "failed to get batch item")
	}
	if out.Item == nil {
		return nil, nil
	}

	var rec models.BatchItemRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch item: %w", err)
	}
	return &rec, nil
}

// Put writes the merged record unconditionally. Merges are monotonic, so a
// concurrent interleaving can only lose a TTL refresh, never a status upgrade
// applied twice.
func (s *DynamoStore) Put(ctx context.Context, rec models.BatchItemRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal batch item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return ddb.WrapErr(err, "failed to put batch item")
}

// ListBatch returns every record sharing batchID.
func (s *DynamoStore) ListBatch(ctx context.Context, batchID string) ([]models.BatchItemRecord, error) {
	keyCond := expression.Key("batch_id").Equal(expression.Value(batchID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	var records []models.BatchItemRecord
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ddb.WrapErr(err, "failed to query batch")
		}
		var recs []models.BatchItemRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batch items: %w", err)
		}
		records = append(records, recs...)
	}
	return records, nil
}
