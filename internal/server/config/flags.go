package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkovs/authapi/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-b string   storage backend ("postgres" or "dynamodb")
//	-k string   path to the RS256 private key PEM file
//	-t int      access token validity, minutes
//	-s int      login-issued refresh token validity, minutes
//	-r int      rotation-issued refresh token validity, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-k", "-t", "-s", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend")
	fs.StringVar(&config.JWTPrivateKeyFile, "k", config.JWTPrivateKeyFile, "RS256 private key PEM file")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	sessionRefreshTokenDuration := fs.Int("s", int(config.SessionRefreshTokenDuration.Minutes()), "session_refresh_token_duration (in minutes)")
	rotationRefreshTokenDuration := fs.Int("r", int(config.RotationRefreshTokenDuration.Minutes()), "rotation_refresh_token_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.SessionRefreshTokenDuration = time.Duration(*sessionRefreshTokenDuration) * time.Minute
	config.RotationRefreshTokenDuration = time.Duration(*rotationRefreshTokenDuration) * time.Minute
}
