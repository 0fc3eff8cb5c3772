package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avolkovs/authapi/internal/server/models"
)

const (
	accessTokenIndex = "AccessTokenIndex"
	ownerIndex       = "OwnerIndex"
)

// refreshTokenItem is the DynamoDB shape of a RefreshToken. The table uses
// token as hash key, with GSIs on access_token and owner.
type refreshTokenItem struct {
	Token          string `dynamodbav:"token"`
	AccessToken    string `dynamodbav:"access_token"`
	Owner          string `dynamodbav:"owner"`
	ExpiresAt      int64  `dynamodbav:"expires_at"`
	Used           bool   `dynamodbav:"used"`
	Revoked        bool   `dynamodbav:"revoked"`
	RevokedReason  string `dynamodbav:"revoked_reason"`
	RevokedAt      int64  `dynamodbav:"revoked_at"`
	SuccessorToken string `dynamodbav:"successor_token"`
	CreatedAt      int64  `dynamodbav:"created_at"`
}

func toRefreshTokenItem(rec *models.RefreshToken) *refreshTokenItem {
	return &refreshTokenItem{
		Token:          rec.Token,
		AccessToken:    rec.AccessToken,
		Owner:          rec.Owner,
		ExpiresAt:      unixOrZero(rec.ExpiresAt),
		Used:           rec.Used,
		Revoked:        rec.Revoked,
		RevokedReason:  rec.RevokedReason,
		RevokedAt:      unixOrZero(rec.RevokedAt),
		SuccessorToken: rec.SuccessorToken,
		CreatedAt:      unixOrZero(rec.CreatedAt),
	}
}

func (i *refreshTokenItem) toModel() *models.RefreshToken {
	return &models.RefreshToken{
		Token:          i.Token,
		AccessToken:    i.AccessToken,
		Owner:          i.Owner,
		ExpiresAt:      timeOrZero(i.ExpiresAt),
		Used:           i.Used,
		Revoked:        i.Revoked,
		RevokedReason:  i.RevokedReason,
		RevokedAt:      timeOrZero(i.RevokedAt),
		SuccessorToken: i.SuccessorToken,
		CreatedAt:      timeOrZero(i.CreatedAt),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

// DynamoRepository implements Repository over a DynamoDB table keyed by
// token. Rotate uses TransactWriteItems so the conditional consume and the
// successor insert commit together.
type DynamoRepository struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoRepository constructs a repository for the given table.
func NewDynamoRepository(client *dynamodb.Client, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func tokenKey(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"token": &types.AttributeValueMemberS{Value: token},
	}
}

func (r *DynamoRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if token == "" {
		return nil, nil
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       tokenKey(token),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting refresh token item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	item := &refreshTokenItem{}
	if err := attributevalue.UnmarshalMap(out.Item, item); err != nil {
		return nil, fmt.Errorf("error unmarshalling refresh token item: %w", err)
	}
	return item.toModel(), nil
}

func (r *DynamoRepository) GetByAccessToken(ctx context.Context, accessToken string) ([]*models.RefreshToken, error) {
	return r.queryIndex(ctx, accessTokenIndex, "access_token", accessToken)
}

func (r *DynamoRepository) Create(ctx context.Context, rec *models.RefreshToken) error {
	item, err := attributevalue.MarshalMap(toRefreshTokenItem(rec))
	if err != nil {
		return fmt.Errorf("error marshalling refresh token item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#t)"),
		ExpressionAttributeNames: map[string]string{
			"#t": "token",
		},
	})
	if err != nil {
		return fmt.Errorf("error putting refresh token item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	item, err := attributevalue.MarshalMap(toRefreshTokenItem(rec))
	if err != nil {
		return fmt.Errorf("error marshalling refresh token item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error putting refresh token item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) ListActiveForOwner(ctx context.Context, owner string, now time.Time) ([]*models.RefreshToken, error) {
	records, err := r.queryIndex(ctx, ownerIndex, "owner", owner)
	if err != nil {
		return nil, err
	}
	active := records[:0]
	for _, rec := range records {
		if rec.IsActive(now) {
			active = append(active, rec)
		}
	}
	return active, nil
}

func (r *DynamoRepository) Rotate(ctx context.Context, consumed, successor *models.RefreshToken) error {
	item, err := attributevalue.MarshalMap(toRefreshTokenItem(successor))
	if err != nil {
		return fmt.Errorf("error marshalling refresh token item: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(r.table),
					Key:                 tokenKey(consumed.Token),
					UpdateExpression:    aws.String("SET used = :t, successor_token = :s"),
					ConditionExpression: aws.String("used = :f AND revoked = :f"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":t": &types.AttributeValueMemberBOOL{Value: true},
						":f": &types.AttributeValueMemberBOOL{Value: false},
						":s": &types.AttributeValueMemberS{Value: successor.Token},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.table),
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return ErrConsumed
				}
			}
		}
		return fmt.Errorf("error rotating refresh token: %w", err)
	}
	return nil
}

func (r *DynamoRepository) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.table),
			FilterExpression: aws.String("expires_at < :c"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", cutoff.Unix())},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return purged, fmt.Errorf("error scanning refresh tokens: %w", err)
		}
		var items []refreshTokenItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return purged, fmt.Errorf("error unmarshalling refresh token items: %w", err)
		}
		for _, item := range items {
			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.table),
				Key:       tokenKey(item.Token),
			})
			if err != nil {
				return purged, fmt.Errorf("error deleting refresh token item: %w", err)
			}
			purged++
		}
		if out.LastEvaluatedKey == nil {
			return purged, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *DynamoRepository) queryIndex(ctx context.Context, index, attr, value string) ([]*models.RefreshToken, error) {
	var out []*models.RefreshToken
	var startKey map[string]types.AttributeValue
	for {
		resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			IndexName:              aws.String(index),
			KeyConditionExpression: aws.String("#k = :v"),
			ExpressionAttributeNames: map[string]string{
				"#k": attr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":v": &types.AttributeValueMemberS{Value: value},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("error querying refresh tokens: %w", err)
		}
		var items []refreshTokenItem
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
			return nil, fmt.Errorf("error unmarshalling refresh token items: %w", err)
		}
		for i := range items {
			out = append(out, items[i].toModel())
		}
		if resp.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = resp.LastEvaluatedKey
	}
}
