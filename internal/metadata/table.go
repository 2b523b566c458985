package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// TableAPI is the subset of the DynamoDB client used to manage the metadata table.
type TableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

// TableProvisioner creates and deletes the metadata table.
type TableProvisioner struct {
	client TableAPI
	policy poll.Policy
}

func NewTableProvisioner(client TableAPI, policy poll.Policy) *TableProvisioner {
	return &TableProvisioner{client: client, policy: policy}
}

// EnsureTable creates the table when it does not exist and waits for it to become
// ACTIVE. A table that already exists is left as is, whatever its status.
// If the wait runs out, poll.ErrTimedOut is returned; the table may still become
// usable later.
func (p *TableProvisioner) EnsureTable(ctx context.Context, name string) error {
	logCtx := slog.With("table", name)

	out, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	switch {
	case err == nil:
		status := out.Table.TableStatus
		logCtx.Info("Table exists.", "status", status)
		if status == types.TableStatusActive {
			logCtx.Info("Table exists and is ready to use.")
		} else {
			logCtx.Info("Table creation ignored.")
		}
		return nil
	case isResourceNotFound(err):
		logCtx.Info("Table does not exist.")
	default:
		logCtx.Error("Failed to describe table", "error", err)
		return fmt.Errorf("failed to describe table %s: %w", name, err)
	}

	logCtx.Info("Creating table.")
	created, err := p.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(KeyAttribute), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(KeyAttribute), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		logCtx.Error("Failed to create table", "error", err)
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	if created.TableDescription != nil && created.TableDescription.TableStatus == types.TableStatusActive {
		logCtx.Info("Table created successfully and is ready to use.")
		return nil
	}

	err = poll.Until(ctx, p.policy, func(ctx context.Context, _ int) (bool, error) {
		out, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			return false, fmt.Errorf("failed to describe table %s: %w", name, err)
		}
		return out.Table.TableStatus == types.TableStatusActive, nil
	})
	if errors.Is(err, poll.ErrTimedOut) {
		logCtx.Warn("Table creation status unknown. Status check exited.")
		return err
	}
	if err != nil {
		logCtx.Error("Failed while waiting for table", "error", err)
		return err
	}
	logCtx.Info("Table created successfully and is ready to use.")
	return nil
}

// DeleteTable deletes the table and waits until it can no longer be described.
func (p *TableProvisioner) DeleteTable(ctx context.Context, name string) error {
	logCtx := slog.With("table", name)
	logCtx.Info("Deleting table.")

	if _, err := p.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
		logCtx.Error("Failed to delete table", "error", err)
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}

	err := poll.Until(ctx, p.policy, func(ctx context.Context, _ int) (bool, error) {
		_, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		switch {
		case err == nil:
			return false, nil
		case isResourceNotFound(err):
			return true, nil
		default:
			return false, fmt.Errorf("failed to describe table %s: %w", name, err)
		}
	})
	if errors.Is(err, poll.ErrTimedOut) {
		logCtx.Warn("Table deletion status unknown. Status check exited.")
		return err
	}
	if err != nil {
		logCtx.Error("Failed while waiting for table deletion", "error", err)
		return err
	}
	logCtx.Info("Table does not exist.")
	return nil
}

func isResourceNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}
