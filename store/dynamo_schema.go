package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ExpiresAtAttribute is the attribute DynamoDB TTL sweeps on.
const ExpiresAtAttribute = "ExpiresAt"

func stringAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func keySchema(hash, rng string) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String(rng), KeyType: types.KeyTypeRange},
	}
}

// CreateDynamoTable creates the table with both secondary indexes if it does
// not exist yet, waits for it to become active and enables TTL on ExpiresAt.
// Safe to run repeatedly.
func CreateDynamoTable(ctx context.Context, client *dynamodb.Client, tableName string, logger *zap.Logger) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr("PK"), stringAttr("SK"),
			stringAttr("GSI1PK"), stringAttr("GSI1SK"),
			stringAttr("GSI2PK"), stringAttr("GSI2SK"),
		},
		KeySchema: keySchema("PK", "SK"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName:  aws.String(string(IndexGSI1)),
				KeySchema:  keySchema("GSI1PK", "GSI1SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName:  aws.String(string(IndexGSI2)),
				KeySchema:  keySchema("GSI2PK", "GSI2SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		logger.Info("🆕 creating table", zap.String("table", tableName))
	case errors.As(err, &inUse):
		logger.Info("table already exists", zap.String("table", tableName))
	default:
		return fmt.Errorf("failed to create table '%s': %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, 5*time.Minute); err != nil {
		return fmt.Errorf("table '%s' did not become active: %w", tableName, err)
	}

	ttl, err := client.DescribeTimeToLive(ctx, &dynamodb.DescribeTimeToLiveInput{TableName: aws.String(tableName)})
	if err != nil {
		return fmt.Errorf("failed to describe TTL of '%s': %w", tableName, err)
	}
	if desc := ttl.TimeToLiveDescription; desc != nil &&
		(desc.TimeToLiveStatus == types.TimeToLiveStatusEnabled || desc.TimeToLiveStatus == types.TimeToLiveStatusEnabling) {
		logger.Info("TTL already enabled", zap.String("table", tableName))
		return nil
	}

	_, err = client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(ExpiresAtAttribute),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable TTL on '%s': %w", tableName, err)
	}
	logger.Info("✅ table ready", zap.String("table", tableName), zap.String("ttl_attribute", ExpiresAtAttribute))
	return nil
}
