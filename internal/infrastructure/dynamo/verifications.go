package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-web/internal/domain"
)

// VerificationRepo manages one-time-code verification records.
// PK: target (e.g. email address), SK: type ("onboarding" | "reset_password").
// The composite key enforces the one-live-record-per-(target, type) invariant:
// Upsert is a plain PutItem, which atomically replaces any existing record.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Upsert replaces any existing record for (target, type) with v.
func (r *VerificationRepo) Upsert(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Find returns the live record for (target, type). A record whose expiry has
// passed behaves as not-found; DynamoDB TTL deletion lags, so the filter is
// applied here rather than trusted to the TTL sweeper.
func (r *VerificationRepo) Find(ctx context.Context, target string, typ domain.VerificationType) (*domain.Verification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("target", target, "type", string(typ)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	if v.Expired(time.Now()) {
		return nil, fmt.Errorf("verification expired: %w", domain.ErrNotFound)
	}
	return &v, nil
}

// Delete removes the record unconditionally. Deleting a non-existent record
// is not an error.
func (r *VerificationRepo) Delete(ctx context.Context, target string, typ domain.VerificationType) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("target", target, "type", string(typ)),
	})
	return err
}

// ConsumeIfSecret deletes the record for (target, type) only if it still holds
// the given secret and is unexpired, reporting whether it did. Conditioning on
// the exact secret the caller just validated against makes validate+delete a
// single atomic consume: a concurrent consume or a re-issued record (which
// rotates the secret) fails the condition and returns false.
func (r *VerificationRepo) ConsumeIfSecret(ctx context.Context, target string, typ domain.VerificationType, secret string) (bool, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("target", target, "type", string(typ)),
		ConditionExpression: aws.String("secret = :s AND (attribute_not_exists(expires_at) OR expires_at > :now)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":   &types.AttributeValueMemberS{Value: secret},
			":now": &types.AttributeValueMemberN{Value: now},
		},
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
