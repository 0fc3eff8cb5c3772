package credentials

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

// credentialItem is the DynamoDB shape of a Credential. The table uses
// user_id as hash key and auth_provider as range key.
type credentialItem struct {
	UserID    string `dynamodbav:"user_id"`
	Provider  string `dynamodbav:"auth_provider"`
	Type      string `dynamodbav:"auth_type"`
	Value     string `dynamodbav:"auth_value"`
	CreatedAt int64  `dynamodbav:"created_at"`
}

func toCredentialItem(c *models.Credential) *credentialItem {
	created := int64(0)
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.Unix()
	}
	return &credentialItem{
		UserID:    c.UserID,
		Provider:  string(c.Provider),
		Type:      string(c.Type),
		Value:     c.Value,
		CreatedAt: created,
	}
}

func (i *credentialItem) toModel() *models.Credential {
	c := &models.Credential{
		UserID:   i.UserID,
		Provider: models.AuthProvider(i.Provider),
		Type:     models.CredentialType(i.Type),
		Value:    i.Value,
	}
	if i.CreatedAt != 0 {
		c.CreatedAt = time.Unix(i.CreatedAt, 0).UTC()
	}
	return c
}

// DynamoRepository implements Repository over a DynamoDB table keyed by
// (user_id, auth_provider).
type DynamoRepository struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoRepository constructs a repository for the given table.
func NewDynamoRepository(client *dynamodb.Client, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func credentialKey(userID string, provider models.AuthProvider) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":       &types.AttributeValueMemberS{Value: userID},
		"auth_provider": &types.AttributeValueMemberS{Value: string(provider)},
	}
}

func (r *DynamoRepository) GetByUserAndProvider(ctx context.Context, userID string, provider models.AuthProvider) (*models.Credential, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       credentialKey(userID, provider),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting credential item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	item := &credentialItem{}
	if err := attributevalue.UnmarshalMap(out.Item, item); err != nil {
		return nil, fmt.Errorf("error unmarshalling credential item: %w", err)
	}
	return item.toModel(), nil
}

func (r *DynamoRepository) Create(ctx context.Context, c *models.Credential) error {
	item, err := attributevalue.MarshalMap(toCredentialItem(c))
	if err != nil {
		return fmt.Errorf("error marshalling credential item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error putting credential item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Update(ctx context.Context, c *models.Credential) error {
	item, err := attributevalue.MarshalMap(toCredentialItem(c))
	if err != nil {
		return fmt.Errorf("error marshalling credential item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error putting credential item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Delete(ctx context.Context, userID string, provider models.AuthProvider) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       credentialKey(userID, provider),
	})
	if err != nil {
		return fmt.Errorf("error deleting credential item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) ListAllForUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error querying credentials: %w", err)
	}
	var items []credentialItem
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
		return nil, fmt.Errorf("error unmarshalling credential items: %w", err)
	}
	out := make([]*models.Credential, 0, len(items))
	for i := range items {
		out = append(out, items[i].toModel())
	}
	return out, nil
}
