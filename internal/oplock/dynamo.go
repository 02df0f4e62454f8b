package oplock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/moonshakerlabs/taxdrive/internal/model"
)

// DefaultTTL bounds how long a crashed holder can block a user. One remote
// operation is a handful of provider round trips, so two minutes is generous.
const DefaultTTL = 2 * time.Minute

// DynamoLocker implements Locker with a DynamoDB conditional put, so the
// lock holds across horizontally scaled instances.
type DynamoLocker struct {
	client      *dynamodb.Client
	tableName   string
	ttlDuration time.Duration
}

// NewDynamoLocker creates a DynamoLocker on the given table. The table's
// partition key is user_id and expires_at is its TTL attribute.
func NewDynamoLocker(client *dynamodb.Client, tableName string) *DynamoLocker {
	return &DynamoLocker{
		client:      client,
		tableName:   tableName,
		ttlDuration: DefaultTTL,
	}
}

// Acquire takes the user's lock. It succeeds when no lock row exists or the
// existing row has expired; a live row owned by anyone else means a
// concurrent operation is running and yields ErrLocked.
func (l *DynamoLocker) Acquire(ctx context.Context, userID string) (string, error) {
	now := time.Now().Unix()
	lock := model.OperationLock{
		UserID:    userID,
		OwnerID:   uuid.NewString(),
		ExpiresAt: now + int64(l.ttlDuration.Seconds()),
	}

	item, err := attributevalue.MarshalMap(lock)
	if err != nil {
		return "", fmt.Errorf("failed to marshal operation lock: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return "", ErrLocked
		}
		return "", fmt.Errorf("failed to acquire operation lock: %w", err)
	}
	return lock.OwnerID, nil
}

// Release drops the lock if owner still holds it. A lock that already
// expired and was taken over is left alone.
func (l *DynamoLocker) Release(ctx context.Context, userID, owner string) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil
		}
		return fmt.Errorf("failed to release operation lock: %w", err)
	}
	return nil
}
