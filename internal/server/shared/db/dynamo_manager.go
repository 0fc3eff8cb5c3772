package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/avolkovs/authapi/internal/server/config"
	appcreds "github.com/avolkovs/authapi/internal/server/credentials"
	"github.com/avolkovs/authapi/internal/server/profiles"
	"github.com/avolkovs/authapi/internal/server/refreshtokens"
)

// DynamoRepositoryManager backs every repository with DynamoDB tables.
// Tables and indexes are provisioned out of band, so RunMigrations is a
// no-op and Conn returns nil.
type DynamoRepositoryManager struct {
	profiles      profiles.Repository
	credentials   appcreds.Repository
	refreshTokens refreshtokens.Repository
}

// NewDynamoRepositoryManager builds a DynamoDB client from the default AWS
// credential chain. When cfg.DynamoEndpoint is set (DynamoDB Local), the
// client pins that endpoint and uses static dummy credentials.
func NewDynamoRepositoryManager(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoRegion),
	}
	if cfg.DynamoEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})

	return &DynamoRepositoryManager{
		profiles:      profiles.NewDynamoRepository(client, cfg.DynamoProfilesTable),
		credentials:   appcreds.NewDynamoRepository(client, cfg.DynamoCredentialsTable),
		refreshTokens: refreshtokens.NewDynamoRepository(client, cfg.DynamoRefreshTokensTable),
	}, nil
}

func (m *DynamoRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *DynamoRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *DynamoRepositoryManager) Profiles() profiles.Repository {
	return m.profiles
}

func (m *DynamoRepositoryManager) Credentials() appcreds.Repository {
	return m.credentials
}

func (m *DynamoRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *DynamoRepositoryManager) Close() error {
	return nil
}
