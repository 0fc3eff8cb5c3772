package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avolkovs/authapi/internal/common"
	"github.com/avolkovs/authapi/internal/server/models"
)

// GSI names on the users table.
const (
	usernameIndex          = "UsernameIndex"
	emailIndex             = "EmailIndex"
	verificationTokenIndex = "VerificationTokenIndex"
)

// profileItem is the DynamoDB shape of a UserProfile. Timestamps are stored
// as unix seconds; zero times are stored as 0.
type profileItem struct {
	ID                      string `dynamodbav:"id"`
	Username                string `dynamodbav:"username"`
	UsernameOriginal        string `dynamodbav:"username_original"`
	Email                   string `dynamodbav:"email"`
	IsUserRole              bool   `dynamodbav:"is_user_role"`
	IsAdminRole             bool   `dynamodbav:"is_admin_role"`
	EmailVerified           bool   `dynamodbav:"email_verified"`
	EmailVerifiedAt         int64  `dynamodbav:"email_verified_at"`
	VerificationToken       string `dynamodbav:"verification_token,omitempty"`
	VerificationTokenExpiry int64  `dynamodbav:"verification_token_expiry"`
	CreatedAt               int64  `dynamodbav:"created_at"`
}

func toProfileItem(p *models.UserProfile) *profileItem {
	return &profileItem{
		ID:                      p.ID,
		Username:                models.NormalizeKey(p.Username),
		UsernameOriginal:        p.UsernameOriginal,
		Email:                   models.NormalizeKey(p.Email),
		IsUserRole:              p.IsUserRole,
		IsAdminRole:             p.IsAdminRole,
		EmailVerified:           p.EmailVerified,
		EmailVerifiedAt:         unixOrZero(p.EmailVerifiedAt),
		VerificationToken:       p.VerificationToken,
		VerificationTokenExpiry: unixOrZero(p.VerificationTokenExpiry),
		CreatedAt:               unixOrZero(p.CreatedAt),
	}
}

func (i *profileItem) toModel() *models.UserProfile {
	return &models.UserProfile{
		ID:                      i.ID,
		Username:                i.Username,
		UsernameOriginal:        i.UsernameOriginal,
		Email:                   i.Email,
		IsUserRole:              i.IsUserRole,
		IsAdminRole:             i.IsAdminRole,
		EmailVerified:           i.EmailVerified,
		EmailVerifiedAt:         timeOrZero(i.EmailVerifiedAt),
		VerificationToken:       i.VerificationToken,
		VerificationTokenExpiry: timeOrZero(i.VerificationTokenExpiry),
		CreatedAt:               timeOrZero(i.CreatedAt),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// DynamoRepository implements Repository over a DynamoDB table with hash key
// "id" and GSIs on username, email, and verification_token.
type DynamoRepository struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoRepository constructs a repository for the given table.
func NewDynamoRepository(client *dynamodb.Client, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error getting profile item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	item := &profileItem{}
	if err := attributevalue.UnmarshalMap(out.Item, item); err != nil {
		return nil, fmt.Errorf("error unmarshalling profile item: %w", err)
	}
	return item.toModel(), nil
}

func (r *DynamoRepository) GetByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	return r.queryIndex(ctx, usernameIndex, "username", models.NormalizeKey(username))
}

func (r *DynamoRepository) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return r.queryIndex(ctx, emailIndex, "email", models.NormalizeKey(email))
}

func (r *DynamoRepository) GetByVerificationToken(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, nil
	}
	return r.queryIndex(ctx, verificationTokenIndex, "verification_token", token)
}

func (r *DynamoRepository) Create(ctx context.Context, p *models.UserProfile) error {
	item, err := attributevalue.MarshalMap(toProfileItem(p))
	if err != nil {
		return fmt.Errorf("error marshalling profile item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error putting profile item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Update(ctx context.Context, p *models.UserProfile) error {
	item, err := attributevalue.MarshalMap(toProfileItem(p))
	if err != nil {
		return fmt.Errorf("error marshalling profile item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error putting profile item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("error deleting profile item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) ListAll(ctx context.Context) ([]*models.UserProfile, error) {
	var out []*models.UserProfile
	var startKey map[string]types.AttributeValue
	for {
		resp, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("error scanning profiles: %w", err)
		}
		var items []profileItem
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
			return nil, fmt.Errorf("error unmarshalling profile items: %w", err)
		}
		for i := range items {
			out = append(out, items[i].toModel())
		}
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	return out, nil
}

func (r *DynamoRepository) queryIndex(ctx context.Context, index, attr, value string) (*models.UserProfile, error) {
	if value == "" {
		return nil, nil
	}
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
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", index, err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	item := &profileItem{}
	if err := attributevalue.UnmarshalMap(resp.Items[0], item); err != nil {
		return nil, fmt.Errorf("error unmarshalling profile item: %w", err)
	}
	return item.toModel(), nil
}
