package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homematch/apperrors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// maxTransactItems is DynamoDB's per-transaction item limit.
const maxTransactItems = 100

// DynamoAPI is the subset of the DynamoDB client the table uses.
type DynamoAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoTable implements Table on a single DynamoDB table with the GSI1 and
// GSI2 indexes.
type DynamoTable struct {
	Client    DynamoAPI
	TableName string
	Logger    *zap.Logger
}

// NewDynamoClient builds a DynamoDB client for region. A non-empty endpoint
// points the client at a local DynamoDB.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewDynamoTable wraps client for tableName.
func NewDynamoTable(client DynamoAPI, tableName string, logger *zap.Logger) *DynamoTable {
	return &DynamoTable{Client: client, TableName: tableName, Logger: logger}
}

func (t *DynamoTable) key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func (t *DynamoTable) Put(ctx context.Context, item Item) error {
	return t.put(ctx, item, false)
}

func (t *DynamoTable) PutIfAbsent(ctx context.Context, item Item) error {
	return t.put(ctx, item, true)
}

func (t *DynamoTable) put(ctx context.Context, item Item, ifAbsent bool) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      marshaled,
	}
	if ifAbsent {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	}

	started := time.Now()
	_, err = t.Client.PutItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewConflict("item %s/%s already exists", item.PK, item.SK)
		}
		t.Logger.Error("❌ failed to put item", zap.String("pk", item.PK), zap.String("sk", item.SK), zap.Error(err))
		return fmt.Errorf("failed to put item in table '%s': %w", t.TableName, err)
	}
	t.Logger.Debug("item stored",
		zap.String("pk", item.PK),
		zap.String("sk", item.SK),
		zap.Duration("took", time.Since(started)))
	return nil
}

func (t *DynamoTable) TransactPut(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > maxTransactItems {
		return apperrors.NewValidation("transaction of %d items exceeds limit of %d", len(writes), maxTransactItems)
	}

	transactItems := make([]types.TransactWriteItem, 0, len(writes))
	for _, w := range writes {
		marshaled, err := attributevalue.MarshalMap(w.Item)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s/%s: %w", w.Item.PK, w.Item.SK, err)
		}
		put := &types.Put{TableName: aws.String(t.TableName), Item: marshaled}
		if w.IfAbsent {
			put.ConditionExpression = aws.String("attribute_not_exists(PK)")
		}
		transactItems = append(transactItems, types.TransactWriteItem{Put: put})
	}

	_, err := t.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for i, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" && i < len(writes) {
					return apperrors.NewConflict("item %s/%s already exists", writes[i].Item.PK, writes[i].Item.SK)
				}
			}
		}
		t.Logger.Error("❌ transaction failed", zap.Int("item_count", len(writes)), zap.Error(err))
		return fmt.Errorf("transaction of %d items failed: %w", len(writes), err)
	}
	t.Logger.Debug("transaction committed", zap.Int("item_count", len(writes)))
	return nil
}

func (t *DynamoTable) Get(ctx context.Context, pk, sk string) (Item, error) {
	output, err := t.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       t.key(pk, sk),
	})
	if err != nil {
		return Item{}, fmt.Errorf("failed to get item from table '%s': %w", t.TableName, err)
	}
	if output.Item == nil {
		return Item{}, apperrors.NewNotFound("item %s/%s not found", pk, sk)
	}

	var item Item
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return Item{}, fmt.Errorf("failed to unmarshal item %s/%s: %w", pk, sk, err)
	}
	return item, nil
}

func (t *DynamoTable) Query(ctx context.Context, q Query) ([]Item, error) {
	pkAttr, skAttr := "PK", "SK"
	switch q.Index {
	case IndexPrimary:
	case IndexGSI1:
		pkAttr, skAttr = "GSI1PK", "GSI1SK"
	case IndexGSI2:
		pkAttr, skAttr = "GSI2PK", "GSI2SK"
	default:
		return nil, fmt.Errorf("unknown index %q", q.Index)
	}

	keyCondition := "#pk = :pk"
	names := map[string]string{"#pk": pkAttr}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: q.PK},
	}
	if q.SKPrefix != "" {
		keyCondition += " AND begins_with(#sk, :sk)"
		names["#sk"] = skAttr
		values[":sk"] = &types.AttributeValueMemberS{Value: q.SKPrefix}
	}

	// ScanIndexForward: false = newest sort key first
	scanIndexForward := !q.Descending
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.TableName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(scanIndexForward),
	}
	if q.Index != IndexPrimary {
		input.IndexName = aws.String(string(q.Index))
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	var raw []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(t.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.Logger.Error("❌ query failed", zap.String("pk", q.PK), zap.String("index", string(q.Index)), zap.Error(err))
			return nil, fmt.Errorf("failed to query table '%s': %w", t.TableName, err)
		}
		raw = append(raw, page.Items...)
		if q.Limit > 0 && len(raw) >= q.Limit {
			raw = raw[:q.Limit]
			break
		}
	}

	var items []Item
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query result: %w", err)
	}
	t.Logger.Debug("query completed",
		zap.String("index", string(q.Index)),
		zap.String("pk", q.PK),
		zap.String("sk_prefix", q.SKPrefix),
		zap.Int("items", len(items)))
	return items, nil
}

// Close is a no-op; the DynamoDB client holds no resources needing release.
func (t *DynamoTable) Close() error { return nil }
