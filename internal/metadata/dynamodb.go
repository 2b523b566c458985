package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemAPI is the subset of the DynamoDB client used by DynamoStore.
type ItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore is a Store backed by a DynamoDB table.
type DynamoStore struct {
	client ItemAPI
}

func NewDynamoStore(client ItemAPI) *DynamoStore {
	return &DynamoStore{client: client}
}

// Write stores the parsed metadata under fileURI, replacing any existing item.
func (s *DynamoStore) Write(ctx context.Context, table, fileURI, metadataJSON string) error {
	logCtx := slog.With("table", table, "fileName", fileURI)

	v, err := decodeMetadata(metadataJSON)
	if err != nil {
		return err
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata attribute: %w", err)
	}

	logCtx.Info("Writing to table.")
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item: map[string]types.AttributeValue{
			KeyAttribute:      &types.AttributeValueMemberS{Value: fileURI},
			MetadataAttribute: av,
		},
	})
	if err != nil {
		logCtx.Error("Failed to write to table", "error", err)
		return fmt.Errorf("failed to put metadata item: %w", err)
	}
	logCtx.Info("Completed writing to table.")
	return nil
}

// Read returns the stored metadata as a JSON string.
func (s *DynamoStore) Read(ctx context.Context, table, fileURI string) (string, error) {
	logCtx := slog.With("table", table, "fileName", fileURI)
	logCtx.Debug("Retrieving from table.")

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			KeyAttribute: &types.AttributeValueMemberS{Value: fileURI},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get metadata item: %w", err)
	}
	if len(out.Item) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, fileURI)
	}
	av, ok := out.Item[MetadataAttribute]
	if !ok {
		return "", fmt.Errorf("item %s has no %s attribute", fileURI, MetadataAttribute)
	}

	var v any
	if err := attributevalue.Unmarshal(av, &v); err != nil {
		return "", fmt.Errorf("failed to unmarshal metadata attribute: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	logCtx.Debug("Completed retrieving from table.")
	return string(b), nil
}
