// Package dynamo implements the record and counter store on Amazon DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// DefaultKeyAttribute is the partition key name used for tables missing from the key map.
const DefaultKeyAttribute = "id"

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store is an sdk.Store backed by DynamoDB tables with a single string partition key.
type Store struct {
	client dynamoAPI
	keys   map[string]string
}

var _ sdk.Store = (*Store)(nil)

// New wraps a DynamoDB client. keys maps table name to partition key attribute.
func New(client dynamoAPI, keys map[string]string) *Store {
	return &Store{client: client, keys: keys}
}

// NewFromConfig builds the DynamoDB client from a loaded AWS config.
func NewFromConfig(cfg aws.Config, keys map[string]string) *Store {
	return New(dynamodb.NewFromConfig(cfg), keys)
}

func (s *Store) keyAttr(table string) string {
	if k, ok := s.keys[table]; ok && k != "" {
		return k
	}
	return DefaultKeyAttribute
}

func (s *Store) key(table, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.keyAttr(table): &types.AttributeValueMemberS{Value: key},
	}
}

func (s *Store) GetItem(ctx context.Context, table, key string) (sdk.Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            s.key(table, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get %s/%s: %w", table, key, err)
	}
	if out.Item == nil {
		return nil, sdk.ErrNotFound
	}

	var item sdk.Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb decode %s/%s: %w", table, key, err)
	}
	return item, nil
}

// UpdateItem issues one SET expression for all fields. The key attribute cannot be
// updated in DynamoDB and is skipped when present in fields.
func (s *Store) UpdateItem(ctx context.Context, table, key string, fields sdk.Item) error {
	keyAttr := s.keyAttr(table)
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != keyAttr {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key:       s.key(table, key),
	}
	if len(names) > 0 {
		exprNames := make(map[string]string, len(names))
		exprValues := make(map[string]types.AttributeValue, len(names))
		expr := "SET "
		for i, name := range names {
			av, err := attributevalue.Marshal(fields[name])
			if err != nil {
				return fmt.Errorf("dynamodb encode %s.%s: %w", table, name, err)
			}
			n, v := "#f"+strconv.Itoa(i), ":v"+strconv.Itoa(i)
			exprNames[n] = name
			exprValues[v] = av
			if i > 0 {
				expr += ", "
			}
			expr += n + " = " + v
		}
		input.UpdateExpression = aws.String(expr)
		input.ExpressionAttributeNames = exprNames
		input.ExpressionAttributeValues = exprValues
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("dynamodb update %s/%s: %w", table, key, err)
	}
	return nil
}

func (s *Store) GetCount(ctx context.Context, table, key, field string) (int64, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(table),
		Key:                      s.key(table, key),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#f"),
		ExpressionAttributeNames: map[string]string{"#f": field},
	})
	if err != nil {
		return 0, false, fmt.Errorf("dynamodb get %s/%s: %w", table, key, err)
	}
	av, ok := out.Item[field]
	if !ok {
		return 0, false, nil
	}
	num, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false, fmt.Errorf("%s/%s.%s: %w", table, key, field, sdk.ErrInvalidCount)
	}
	n, err := strconv.ParseInt(num.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s/%s.%s: %w", table, key, field, sdk.ErrInvalidCount)
	}
	return n, true, nil
}

func (s *Store) IncrementField(ctx context.Context, table, key, field string, delta int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       s.key(table, key),
		UpdateExpression:          aws.String("ADD #f :d"),
		ExpressionAttributeNames:  map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{":d": number(delta)},
	})
	if err != nil {
		return fmt.Errorf("dynamodb increment %s/%s: %w", table, key, err)
	}
	return nil
}

// IncrementIfBelow performs the check and the increment in one conditional UpdateItem.
func (s *Store) IncrementIfBelow(ctx context.Context, table, key, field string, limit int64) (bool, error) {
	if limit <= 0 {
		// attribute_not_exists would let an absent counter through.
		return false, nil
	}
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       s.key(table, key),
		UpdateExpression:          aws.String("ADD #f :one"),
		ConditionExpression:       aws.String("attribute_not_exists(#f) OR #f < :limit"),
		ExpressionAttributeNames:  map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": number(1), ":limit": number(limit)},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("dynamodb conditional increment %s/%s: %w", table, key, err)
	}
	return true, nil
}

func number(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}
