// Package server initializes and runs the auth server: storage backends,
// token issuance, the HTTP endpoint, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolkovs/authapi/internal/logging"
	"github.com/avolkovs/authapi/internal/server/accounts"
	"github.com/avolkovs/authapi/internal/server/auth"
	"github.com/avolkovs/authapi/internal/server/config"
	"github.com/avolkovs/authapi/internal/server/email"
	"github.com/avolkovs/authapi/internal/server/httpapi"
	"github.com/avolkovs/authapi/internal/server/refreshtokens"
	"github.com/avolkovs/authapi/internal/server/shared/db"
	"github.com/avolkovs/authapi/internal/server/verification"
)

// How often the retention sweep wakes up when purging is enabled.
const purgeInterval = time.Hour

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager db.RepositoryManager
	rotator *refreshtokens.Rotator
	router  *echo.Echo
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	manager, err := newRepositoryManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	keys, err := loadKeys(cfg)
	if err != nil {
		return nil, err
	}
	issuer := auth.NewIssuer(keys, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenValidityDuration)

	rotator := refreshtokens.NewRotator(manager.RefreshTokens(), manager.Profiles())
	verifier := verification.NewService(manager.Profiles(), cfg.VerificationTokenDuration)

	var sender email.Sender
	if cfg.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		sender = email.NewLogSender(logger)
	}

	svc := accounts.NewService(
		manager.Profiles(),
		manager.Credentials(),
		rotator,
		verifier,
		issuer,
		sender,
		logger,
		cfg.SessionRefreshTokenDuration,
		cfg.RotationRefreshTokenDuration,
		cfg.VerifyURL,
	)

	router := httpapi.NewRouter(httpapi.NewHandler(svc), issuer)

	return &App{
		config:  cfg,
		logger:  logger,
		manager: manager,
		rotator: rotator,
		router:  router,
	}, nil
}

func newRepositoryManager(cfg *config.Config) (db.RepositoryManager, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		return db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	case config.BackendDynamoDB:
		return db.NewDynamoRepositoryManager(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

func loadKeys(cfg *config.Config) (*auth.KeyPair, error) {
	priv, err := os.ReadFile(cfg.JWTPrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error reading private key: %w", err)
	}
	var pub []byte
	if cfg.JWTPublicKeyFile != "" {
		pub, err = os.ReadFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("error reading public key: %w", err)
		}
	}
	return auth.LoadKeyPair(string(priv), string(pub))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.router.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddrHTTP)
	if err := app.router.Start(app.config.EndpointAddrHTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

// runPurgeSweep periodically deletes expired refresh-token records past the
// configured retention. Disabled entirely when retention is zero.
func (app *App) runPurgeSweep(ctx context.Context) {
	if app.config.RefreshTokenRetention <= 0 {
		return
	}
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.rotator.PurgeTerminal(ctx, app.config.RefreshTokenRetention)
			if err != nil {
				app.logger.Error(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.manager.RunMigrations(ctx); err != nil {
		app.logger.Error(ctx, "migration error", "error", err)
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runPurgeSweep(ctx)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
