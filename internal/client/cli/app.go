package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/avolkovs/authapi/internal/client/api"
	"github.com/avolkovs/authapi/internal/client/config"
)

// authAPI is the surface of the HTTP client the CLI commands need.
// The real api.Client satisfies it; tests provide a fake.
type authAPI interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, username, password string) (*api.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Verify(ctx context.Context, token string) error
	PromoteAdmin(ctx context.Context, accessToken, username string) error
}

// App holds the CLI state: the API client and the in-memory session tokens.
type App struct {
	config   *config.Config
	api      authAPI
	reader   *bufio.Reader
	userName string
	tokens   *api.TokenPair
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    api.NewClient(c.ServerEndpointAddr, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.tokens != nil
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	s := a.userName
	if a.tokens != nil && !a.tokens.AccessExpiresAt.IsZero() &&
		a.tokens.AccessExpiresAt.Before(time.Now()) {
		s = s + " expired"
	}
	return fmt.Sprintf("(%s)", s)
}

// Run starts the interactive loop and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Auth CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
