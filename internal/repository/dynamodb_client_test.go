package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func makeStateItem(pk, data, version string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: pk},
		"SK":      &types.AttributeValueMemberS{Value: skState},
		"data":    &types.AttributeValueMemberS{Value: data},
		"version": &types.AttributeValueMemberN{Value: version},
	}
}

func mustNewDynamo(t *testing.T, db *fakeDynamo) *DynamoClient {
	t.Helper()
	c, err := NewDynamoClient(db, "test-table", time.Hour)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return c
}

func TestNewDynamoClient_Validates(t *testing.T) {
	_, err := NewDynamoClient(nil, "t", 0)
	require.Error(t, err)
	_, err = NewDynamoClient(&fakeDynamo{}, " ", 0)
	require.Error(t, err)

	c, err := NewDynamoClient(&fakeDynamo{}, "t", 0)
	require.NoError(t, err)
	require.Equal(t, defaultDynamoTTL, c.ttl)
}

func TestDynamoGet_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeStateItem("CONV#abc", `{"activeFlow":true}`, "3")}}
	c := mustNewDynamo(t, db)

	item, err := c.Get(context.Background(), ScopeConversation, "abc")
	require.NoError(t, err)
	require.Equal(t, int64(3), item.Version)
	require.JSONEq(t, `{"activeFlow":true}`, string(item.Data))

	require.True(t, aws.ToBool(db.lastGetInput.ConsistentRead))
	require.Equal(t, "CONV#abc", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoGet_UserScopeKey(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewDynamo(t, db)

	item, err := c.Get(context.Background(), ScopeUser, "u1")
	require.NoError(t, err)
	require.Zero(t, item.Version)
	require.Nil(t, item.Data)
	require.Equal(t, "USER#u1", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoGet_Errors(t *testing.T) {
	c := mustNewDynamo(t, &fakeDynamo{getErr: errors.New("boom")})
	_, err := c.Get(context.Background(), ScopeConversation, "abc")
	require.ErrorContains(t, err, "boom")

	_, err = c.Get(context.Background(), Scope("bogus"), "abc")
	require.ErrorContains(t, err, "unknown scope")

	bad := makeStateItem("CONV#abc", "{}", "x")
	c = mustNewDynamo(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: bad}})
	_, err = c.Get(context.Background(), ScopeConversation, "abc")
	require.ErrorContains(t, err, "decode version")

	missing := makeStateItem("CONV#abc", "{}", "1")
	delete(missing, "data")
	c = mustNewDynamo(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: missing}})
	_, err = c.Get(context.Background(), ScopeConversation, "abc")
	require.ErrorContains(t, err, "decode data")
}

func TestDynamoPut_NewRecordRequiresAbsence(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamo(t, db)

	v, err := c.Put(context.Background(), ScopeUser, "u1", []byte(`{}`), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	in := db.lastPutInput
	require.Equal(t, "attribute_not_exists(PK)", aws.ToString(in.ConditionExpression))
	require.Equal(t, "USER#u1", in.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "1", in.Item["version"].(*types.AttributeValueMemberN).Value)
	require.Equal(t, "1700003600", in.Item["ttl"].(*types.AttributeValueMemberN).Value)
}

func TestDynamoPut_ExistingRecordChecksVersion(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamo(t, db)

	v, err := c.Put(context.Background(), ScopeConversation, "abc", []byte(`{}`), 4)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)

	in := db.lastPutInput
	require.Equal(t, "#version = :expected", aws.ToString(in.ConditionExpression))
	require.Equal(t, "version", in.ExpressionAttributeNames["#version"])
	require.Equal(t, "4", in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value)
}

func TestDynamoPut_ConditionFailureIsConflict(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("stale")}}
	c := mustNewDynamo(t, db)

	_, err := c.Put(context.Background(), ScopeConversation, "abc", []byte(`{}`), 2)
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestDynamoPut_OtherError(t *testing.T) {
	c := mustNewDynamo(t, &fakeDynamo{putErr: errors.New("throttled")})
	_, err := c.Put(context.Background(), ScopeConversation, "abc", []byte(`{}`), 2)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrVersionConflict)
	require.ErrorContains(t, err, "throttled")
}
