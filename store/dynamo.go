package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/dimensions/internal/shard"
)

const (
	// DynamoDB rejects IN lists longer than 100 operands.
	maxInOperands = 100

	// BatchWriteItem accepts at most 25 requests.
	maxBatchWrite = 25
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoTable.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var (
	_ DynamoAPI       = (*dynamodb.Client)(nil)
	_ Table[struct{}] = (*DynamoTable[struct{}])(nil)
)

// DynamoTable stores rows in a DynamoDB table keyed by a string "id" hash key.
// Rows are marshalled with attributevalue, so row types control attribute
// names through `dynamodbav` tags that must agree with the schema field names.
type DynamoTable[T any] struct {
	client DynamoAPI
	schema Schema[T]
	config Config
	table  string
}

// NewDynamoTable creates a DynamoDB-backed table.
func NewDynamoTable[T any](client DynamoAPI, schema Schema[T], config Config) *DynamoTable[T] {
	config.validate()
	return &DynamoTable[T]{
		client: client,
		schema: schema,
		config: config,
		table:  config.TableName(schema.Name),
	}
}

// TableName returns the physical table name.
func (t *DynamoTable[T]) TableName() string {
	return t.table
}

// Query scans the table with a filter expression.
func (t *DynamoTable[T]) Query(ctx context.Context, filter Filter) ([]T, error) {
	if err := t.schema.check(filter); err != nil {
		return nil, err
	}
	if filter.MatchesNothing() {
		return nil, nil
	}

	var rows []T
	for _, part := range filter.splitWidest(maxInOperands) {
		items, err := t.scan(ctx, part, "")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var row T
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				return nil, fmt.Errorf("unmarshal %s item: %w", t.table, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// DeleteWhere scans for matching keys and removes them in batches.
func (t *DynamoTable[T]) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if err := t.schema.check(filter); err != nil {
		return 0, err
	}
	if filter.MatchesNothing() {
		return 0, nil
	}

	var keys []map[string]types.AttributeValue
	for _, part := range filter.splitWidest(maxInOperands) {
		items, err := t.scan(ctx, part, IDField)
		if err != nil {
			return 0, err
		}
		keys = append(keys, items...)
	}

	for _, chunk := range shard.Split(keys, maxBatchWrite) {
		if err := t.batchDelete(ctx, chunk); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// Save puts the row, replacing any existing item with the same id.
func (t *DynamoTable[T]) Save(ctx context.Context, row T) (T, error) {
	if t.schema.ID(row) == "" {
		return row, ErrMissingID
	}
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return row, fmt.Errorf("marshal %s item: %w", t.table, err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.table),
		Item:      item,
	})
	if err != nil {
		return row, err
	}
	return row, nil
}

// FindByID gets the item with the given id.
func (t *DynamoTable[T]) FindByID(ctx context.Context, id string) (T, error) {
	var row T
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.table),
		Key:       idKey(id),
	})
	if err != nil {
		return row, err
	}
	if result.Item == nil {
		return row, ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, &row); err != nil {
		return row, fmt.Errorf("unmarshal %s item: %w", t.table, err)
	}
	return row, nil
}

// scan returns every item matching filter, optionally projected to one attribute.
func (t *DynamoTable[T]) scan(ctx context.Context, filter Filter, projection string) ([]map[string]types.AttributeValue, error) {
	segments := t.config.ScanSegments

	// Fast path for a single segment (default)
	if segments == 1 {
		return t.scanSegment(ctx, filter, projection, nil)
	}

	// Parallel scan fan-out
	var mu sync.Mutex
	var all []map[string]types.AttributeValue
	var wg sync.WaitGroup
	errs := make(chan error, segments)

	for segment := 0; segment < segments; segment++ {
		wg.Add(1)
		go func(segment int) {
			defer wg.Done()

			items, err := t.scanSegment(ctx, filter, projection, &segment)
			if err != nil {
				errs <- fmt.Errorf("segment %02d: %w", segment, err)
				return
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(segment)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return all, nil
}

func (t *DynamoTable[T]) scanSegment(ctx context.Context, filter Filter, projection string, segment *int) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.table),
	}

	expr, names, values := filterExpression(filter)
	if expr != "" {
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeValues = values
	}
	if projection != "" {
		if names == nil {
			names = map[string]string{}
		}
		names["#proj"] = projection
		input.ProjectionExpression = aws.String("#proj")
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	if segment != nil {
		input.Segment = aws.Int32(int32(*segment))
		input.TotalSegments = aws.Int32(int32(t.config.ScanSegments))
	}

	// Paginate through all results
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// batchDelete deletes up to 25 keys, resubmitting unprocessed items with backoff.
func (t *DynamoTable[T]) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key},
		})
	}

	backoff := 10 * time.Millisecond
	for attempt := 0; ; attempt++ {
		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{t.table: requests},
		})
		if err != nil {
			return err
		}
		requests = out.UnprocessedItems[t.table]
		if len(requests) == 0 {
			return nil
		}
		if attempt+1 >= t.config.MaxBatchRetries {
			return fmt.Errorf("%w: %d items in %s", ErrUnprocessed, len(requests), t.table)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// filterExpression renders filter as a DynamoDB filter expression.
// Returns an empty expression for an empty filter.
func filterExpression(filter Filter) (string, map[string]string, map[string]types.AttributeValue) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	names := make(map[string]string, len(filter))
	values := make(map[string]types.AttributeValue)
	clauses := make([]string, 0, len(filter))

	for i, c := range filter {
		nameKey := fmt.Sprintf("#f%d", i)
		names[nameKey] = c.Field

		operands := make([]string, 0, len(c.Values))
		for j, v := range c.Values {
			valueKey := fmt.Sprintf(":f%dv%d", i, j)
			values[valueKey] = &types.AttributeValueMemberS{Value: v}
			operands = append(operands, valueKey)
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", nameKey, strings.Join(operands, ", ")))
	}

	return strings.Join(clauses, " AND "), names, values
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		IDField: &types.AttributeValueMemberS{Value: id},
	}
}
