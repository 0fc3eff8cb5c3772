// Package httpapi exposes the account operations over HTTP using echo.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolkovs/authapi/internal/server/accounts"
	"github.com/avolkovs/authapi/internal/server/auth"
)

// AccountService is the slice of the orchestrator the handlers need.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) accounts.Result
	Login(ctx context.Context, username, password string) (accounts.Result, *accounts.TokenPair)
	Refresh(ctx context.Context, accessToken, refreshToken string) (accounts.Result, *accounts.TokenPair)
	Logout(ctx context.Context, accessToken string) accounts.Result
	Verify(ctx context.Context, token string) accounts.Result
	PromoteAdmin(ctx context.Context, username string) accounts.Result
}

// Handler holds the HTTP handlers for the auth endpoints.
type Handler struct {
	service AccountService
}

// NewHandler constructs a Handler over the account service.
func NewHandler(s AccountService) *Handler {
	return &Handler{service: s}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type promoteRequest struct {
	Username string `json:"username"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func toTokenPairResponse(p *accounts.TokenPair) *tokenPairResponse {
	return &tokenPairResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func badPayload(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, apiResponse{
		Status:  string(accounts.StatusBadRequest),
		Message: "Invalid request payload.",
	})
}

func (h *Handler) Register(c echo.Context) error {
	req := new(registerRequest)
	if err := c.Bind(req); err != nil {
		return badPayload(c)
	}
	res := h.service.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	return respond(c, res, nil)
}

func (h *Handler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return badPayload(c)
	}
	res, pair := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if pair == nil {
		return respond(c, res, nil)
	}
	return respond(c, res, toTokenPairResponse(pair))
}

func (h *Handler) Refresh(c echo.Context) error {
	req := new(refreshRequest)
	if err := c.Bind(req); err != nil {
		return badPayload(c)
	}
	res, pair := h.service.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	if pair == nil {
		return respond(c, res, nil)
	}
	return respond(c, res, toTokenPairResponse(pair))
}

// Logout revokes every refresh token paired with the caller's bearer token.
// The raw token comes from the auth middleware.
func (h *Handler) Logout(c echo.Context) error {
	token, _ := c.Get(ctxKeyAccessToken).(string)
	res := h.service.Logout(c.Request().Context(), token)
	return respond(c, res, nil)
}

// Verify redeems the emailed verification token from the query string.
func (h *Handler) Verify(c echo.Context) error {
	res := h.service.Verify(c.Request().Context(), c.QueryParam("token"))
	return respond(c, res, nil)
}

// PromoteAdmin grants the admin role; only admins may call it.
func (h *Handler) PromoteAdmin(c echo.Context) error {
	claims, _ := c.Get(ctxKeyClaims).(*auth.AccessClaims)
	if claims == nil || !claims.HasRole(auth.RoleAdmin) {
		return c.JSON(http.StatusForbidden, apiResponse{
			Status:  string(accounts.StatusForbidden),
			Message: "Admin role required.",
		})
	}
	req := new(promoteRequest)
	if err := c.Bind(req); err != nil {
		return badPayload(c)
	}
	res := h.service.PromoteAdmin(c.Request().Context(), req.Username)
	return respond(c, res, nil)
}
