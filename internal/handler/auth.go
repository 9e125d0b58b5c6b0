package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/middleware"
	"github.com/iliyamo/cloud-asset-api/internal/service"
	"github.com/iliyamo/cloud-asset-api/internal/utils"
)

// Identity is what the auth endpoints need from the identity validator.
type Identity interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (utils.AccessToken, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Identity Identity
	Log      *zap.SugaredLogger
}

func NewAuthHandler(id Identity, log *zap.SugaredLogger) *AuthHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AuthHandler{Identity: id, Log: log}
}

// ----- DTOs -----

// credentialsReq accepts JSON or the OAuth2 password form.
type credentialsReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// tokenResp is the body returned by the token endpoint.
type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Register: create a credential.  No token is issued here.
func (h *AuthHandler) Register(c echo.Context) error {
	// Bind the JSON or form body into the request DTO.
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	// Bound the hashing and the insert together.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Map the validator's sentinel errors onto status codes.  Anything
	// unexpected is logged and hidden behind a generic 500.
	err := h.Identity.Register(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, echo.Map{
			"message": fmt.Sprintf("User '%s' registered successfully", req.Username),
		})
	case errors.Is(err, service.ErrInvalidUsername):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.UsernameRuleMessage})
	case errors.Is(err, service.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.PasswordRuleMessage})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Username already exists"})
	default:
		h.Log.Errorw("register failed", "error", err)
		return internalError(c)
	}
}

// Token: exchange username and password for a bearer access token.
func (h *AuthHandler) Token(c echo.Context) error {
	// Same DTO as Register; OAuth2 clients post it as a form.
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	// Bound the lookup and the bcrypt comparison.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, err := h.Identity.Login(ctx, req.Username, req.Password)
	if err != nil {
		// Unknown user, wrong password and malformed username share one
		// response.
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username or password"})
		}
		h.Log.Errorw("login failed", "error", err)
		return internalError(c)
	}

	// Return the token in the OAuth2 bearer shape.
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		ExpiresAt:   tok.Exp,
	})
}

// Me echoes the identity behind the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"username": middleware.Subject(c)})
}

func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
