package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// fakeDynamo keeps tables and items in memory. A created table turns ACTIVE
// after activateAfter describe calls; activateAfter < 0 keeps it CREATING forever.
type fakeDynamo struct {
	mu            sync.Mutex
	tables        map[string]types.TableStatus
	items         map[string]map[string]map[string]types.AttributeValue
	describes     int
	creates       int
	activateAfter int
	describeErr   error
	createStatus  types.TableStatus
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables:        map[string]types.TableStatus{},
		items:         map[string]map[string]map[string]types.AttributeValue{},
		activateAfter: 2,
		createStatus:  types.TableStatusCreating,
	}
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	name := aws.ToString(in.TableName)
	status, ok := f.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	if status == types.TableStatusCreating && f.activateAfter >= 0 {
		if f.activateAfter == 0 {
			status = types.TableStatusActive
			f.tables[name] = status
		} else {
			f.activateAfter--
		}
	}
	if status == types.TableStatusDeleting {
		delete(f.tables, name)
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName, TableStatus: status}}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.tables[name] = f.createStatus
	return &dynamodb.CreateTableOutput{TableDescription: &types.TableDescription{TableName: in.TableName, TableStatus: f.createStatus}}, nil
}

func (f *fakeDynamo) DeleteTable(_ context.Context, in *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	f.tables[name] = types.TableStatusDeleting
	return &dynamodb.DeleteTableOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(in.TableName)
	if f.items[table] == nil {
		f.items[table] = map[string]map[string]types.AttributeValue{}
	}
	key := in.Item[KeyAttribute].(*types.AttributeValueMemberS).Value
	f.items[table][key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := in.Key[KeyAttribute].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[aws.ToString(in.TableName)][key]}, nil
}

func fastPolicy() poll.Policy {
	return poll.Policy{Interval: time.Millisecond, MaxAttempts: 60}
}

func TestDynamoStoreRoundTrip(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo())
	record := `{"description":"Invoice","summary":"An invoice for services.","pii_indicator":true,` +
		`"pii_explanation":"Contains a name and address.","comments":"Created using the LLM.",` +
		`"create_date_time":"2025-01-02 03:04:05","pages":3,"tags":["finance",null]}`

	require.NoError(t, store.Write(context.Background(), "file-metadata", "s3://data/docs/invoice.pdf", record))
	got, err := store.Read(context.Background(), "file-metadata", "s3://data/docs/invoice.pdf")
	require.NoError(t, err)

	var want, have any
	require.NoError(t, json.Unmarshal([]byte(record), &want))
	require.NoError(t, json.Unmarshal([]byte(got), &have))
	assert.Equal(t, want, have)
}

func TestDynamoStoreOverwrites(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo())
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "t", "s3://b/k", `{"summary":"first"}`))
	require.NoError(t, store.Write(ctx, "t", "s3://b/k", `{"summary":"second"}`))

	got, err := store.Read(ctx, "t", "s3://b/k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"second"}`, got)
}

func TestDynamoStoreReadMissing(t *testing.T) {
	_, err := NewDynamoStore(newFakeDynamo()).Read(context.Background(), "t", "s3://b/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoStoreRejectsInvalidJSON(t *testing.T) {
	fake := newFakeDynamo()
	err := NewDynamoStore(fake).Write(context.Background(), "t", "s3://b/k", `{"summary":`)
	require.Error(t, err)
	assert.Empty(t, fake.items["t"], "nothing is written when the metadata does not parse")
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	fake := newFakeDynamo()
	p := NewTableProvisioner(fake, fastPolicy())

	require.NoError(t, p.EnsureTable(context.Background(), "file-metadata"))
	assert.Equal(t, types.TableStatusActive, fake.tables["file-metadata"])
	require.NoError(t, p.EnsureTable(context.Background(), "file-metadata"))

	assert.Equal(t, 1, fake.creates)
}

func TestEnsureTableActiveOnCreate(t *testing.T) {
	fake := newFakeDynamo()
	fake.createStatus = types.TableStatusActive

	require.NoError(t, NewTableProvisioner(fake, fastPolicy()).EnsureTable(context.Background(), "t"))
	assert.Equal(t, 1, fake.describes, "no polling when the table is immediately active")
}

func TestEnsureTableTimesOutAfterSixtyChecks(t *testing.T) {
	fake := newFakeDynamo()
	fake.activateAfter = -1

	err := NewTableProvisioner(fake, fastPolicy()).EnsureTable(context.Background(), "t")
	require.ErrorIs(t, err, poll.ErrTimedOut)
	assert.Equal(t, 1+60, fake.describes)
}

func TestEnsureTableSurfacesDescribeErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.describeErr = errors.New("AccessDeniedException")

	err := NewTableProvisioner(fake, fastPolicy()).EnsureTable(context.Background(), "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDeniedException")
	assert.Zero(t, fake.creates)
}

func TestDeleteTableWaitsUntilGone(t *testing.T) {
	fake := newFakeDynamo()
	fake.tables["t"] = types.TableStatusActive

	require.NoError(t, NewTableProvisioner(fake, fastPolicy()).DeleteTable(context.Background(), "t"))
	assert.NotContains(t, fake.tables, "t")
	assert.Equal(t, 2, fake.describes)
}

func TestDocumentIDEscapesSlashes(t *testing.T) {
	id := DocumentID("gs://data/docs/a b.pdf")
	assert.NotContains(t, id, "/")
	assert.Equal(t, "gs:%2F%2Fdata%2Fdocs%2Fa%20b.pdf", id)
}
