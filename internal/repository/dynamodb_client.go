package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skState            = "STATE#"
	defaultDynamoTTL   = 30 * 24 * time.Hour
	conversationPrefix = "CONV#"
	userPrefix         = "USER#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoClient.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoClient stores conversation and user state in a single DynamoDB table.
type DynamoClient struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoClient creates a DynamoClient. A non-positive ttl uses 30 days.
func NewDynamoClient(api dynamodbAPI, tableName string, ttl time.Duration) (*DynamoClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultDynamoTTL
	}
	return &DynamoClient{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

// partitionKey returns the DynamoDB partition key for a scoped record.
func partitionKey(scope Scope, key string) string {
	if scope == ScopeUser {
		return userPrefix + key
	}
	return conversationPrefix + key
}

func (c *DynamoClient) keyOf(scope Scope, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(scope, key)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// Get reads a state record with a consistent read.
func (c *DynamoClient) Get(ctx context.Context, scope Scope, key string) (Item, error) {
	if !validScope(scope) {
		return Item{}, fmt.Errorf("repository: Get: unknown scope %q", scope)
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.keyOf(scope, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Item{}, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return Item{}, nil
	}

	data, err := strAttr(out.Item, "data")
	if err != nil {
		return Item{}, fmt.Errorf("repository: Get decode data: %w", err)
	}
	version, err := intAttr(out.Item, "version")
	if err != nil {
		return Item{}, fmt.Errorf("repository: Get decode version: %w", err)
	}
	return Item{Data: []byte(data), Version: version}, nil
}

// Put writes a state record if it is still at expectedVersion.
func (c *DynamoClient) Put(ctx context.Context, scope Scope, key string, data []byte, expectedVersion int64) (int64, error) {
	if !validScope(scope) {
		return 0, fmt.Errorf("repository: Put: unknown scope %q", scope)
	}
	now := c.now().UTC()
	next := expectedVersion + 1

	item := c.keyOf(scope, key)
	item["data"] = &types.AttributeValueMemberS{Value: string(data)}
	item["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(c.ttl).Unix(), 10)}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	}
	if expectedVersion == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		in.ConditionExpression = aws.String("#version = :expected")
		in.ExpressionAttributeNames = map[string]string{"#version": "version"}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, fmt.Errorf("repository: Put %s: %w", partitionKey(scope, key), ErrVersionConflict)
		}
		return 0, fmt.Errorf("repository: Put: %w", err)
	}
	return next, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
