package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkovs/authapi/internal/flagx"
	"github.com/avolkovs/authapi/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// It uses timex.Duration for lifetime fields, which parses both string
// values such as "24h" and integer nanoseconds. After unmarshalling, its
// fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP *string `json:"endpoint_addr_http"`
	StorageBackend   *string `json:"storage_backend"`
	DatabaseDSN      *string `json:"database_dsn"`

	JWTPrivateKeyFile *string `json:"jwt_private_key_file"`
	JWTPublicKeyFile  *string `json:"jwt_public_key_file"`
	JWTIssuer         *string `json:"jwt_issuer"`
	JWTAudience       *string `json:"jwt_audience"`

	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	SessionRefreshTokenDuration  *timex.Duration `json:"session_refresh_token_duration"`
	RotationRefreshTokenDuration *timex.Duration `json:"rotation_refresh_token_duration"`
	VerificationTokenDuration    *timex.Duration `json:"verification_token_duration"`
	RefreshTokenRetention        *timex.Duration `json:"refresh_token_retention"`

	VerifyURL *string `json:"verify_url"`

	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port"`
	SMTPUser     *string `json:"smtp_user"`
	SMTPPassword *string `json:"smtp_password"`
	EmailFrom    *string `json:"email_from"`

	DynamoRegion             *string `json:"dynamo_region"`
	DynamoEndpoint           *string `json:"dynamo_endpoint"`
	DynamoProfilesTable      *string `json:"dynamo_profiles_table"`
	DynamoCredentialsTable   *string `json:"dynamo_credentials_table"`
	DynamoRefreshTokensTable *string `json:"dynamo_refresh_tokens_table"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c/-config command-line flags; when neither
// is set, no JSON file is loaded. Fields absent from the file keep their
// current values. An unreadable or invalid file panics: a half-applied
// configuration is worse than a failed start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)

	setString(&config.JWTPrivateKeyFile, c.JWTPrivateKeyFile)
	setString(&config.JWTPublicKeyFile, c.JWTPublicKeyFile)
	setString(&config.JWTIssuer, c.JWTIssuer)
	setString(&config.JWTAudience, c.JWTAudience)

	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.SessionRefreshTokenDuration, c.SessionRefreshTokenDuration)
	setDuration(&config.RotationRefreshTokenDuration, c.RotationRefreshTokenDuration)
	setDuration(&config.VerificationTokenDuration, c.VerificationTokenDuration)
	setDuration(&config.RefreshTokenRetention, c.RefreshTokenRetention)

	setString(&config.VerifyURL, c.VerifyURL)

	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.EmailFrom, c.EmailFrom)

	setString(&config.DynamoRegion, c.DynamoRegion)
	setString(&config.DynamoEndpoint, c.DynamoEndpoint)
	setString(&config.DynamoProfilesTable, c.DynamoProfilesTable)
	setString(&config.DynamoCredentialsTable, c.DynamoCredentialsTable)
	setString(&config.DynamoRefreshTokensTable, c.DynamoRefreshTokensTable)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
