package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cloud-asset-api/internal/config"
	"github.com/iliyamo/cloud-asset-api/internal/handler"
	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/middleware"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
	"github.com/iliyamo/cloud-asset-api/internal/service"
)

type app struct {
	e *echo.Echo
}

func newApp(t *testing.T, limiter *middleware.RateLimiter) app {
	t.Helper()
	cfg := config.Config{JWTSecret: "dummy_secret", JWTAlgorithm: "HS256", AccessTTLMin: 60, BcryptCost: bcrypt.MinCost}
	m := metrics.New()
	id, err := service.NewIdentityValidator(cfg, repository.NewMemoryUserRepo(), service.WithMetrics(m))
	require.NoError(t, err)
	assets := service.NewAssetService(repository.NewMemoryAssetRepo(), nil, m, nil)

	e := New(Deps{
		Auth:     handler.NewAuthHandler(id, nil),
		Assets:   handler.NewAssetHandler(assets, nil),
		Resolver: id,
		Limiter:  limiter,
		Metrics:  m,
	})
	return app{e: e}
}

func (a app) call(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var m map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	return rec, m
}

func (a app) login(t *testing.T, user, pass string) string {
	t.Helper()
	body := `{"username":"` + user + `","password":"` + pass + `"}`
	rec, _ := a.call(t, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, m := a.call(t, http.MethodPost, "/auth/token", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := m["access_token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestEndToEnd_OwnerScoping(t *testing.T) {
	a := newApp(t, nil)

	carol := a.login(t, "carol", "Secr3t!23")
	rec, created := a.call(t, http.MethodPost, "/assets", carol, `{"name":"web-1","type":"EC2","region":"us-east-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "carol", created["owner"])
	assetID := created["id"].(string)

	rec, _ = a.call(t, http.MethodGet, "/assets/"+assetID, carol, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	dave := a.login(t, "dave", "Secr3t!23")
	rec, _ = a.call(t, http.MethodGet, "/assets", dave, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	bob := a.login(t, "bob", "Secr3t!23")
	foreign, _ := a.call(t, http.MethodGet, "/assets/"+assetID, bob, "")
	missing, _ := a.call(t, http.MethodGet, "/assets/"+uuid.NewString(), bob, "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.Code, foreign.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())

	rec, _ = a.call(t, http.MethodDelete, "/assets/"+assetID, bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.call(t, http.MethodDelete, "/assets/"+assetID, carol, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndToEnd_Me(t *testing.T) {
	a := newApp(t, nil)
	tok := a.login(t, "erin", "Secr3t!23")

	rec, m := a.call(t, http.MethodGet, "/auth/me", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "erin", m["username"])

	rec, _ = a.call(t, http.MethodGet, "/auth/me", tok+"x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicRoutes(t *testing.T) {
	a := newApp(t, nil)

	rec, _ := a.call(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, m := a.call(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, m["endpoints"])

	a.call(t, http.MethodGet, "/healthz", "", "")
	rec, _ = a.call(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cloudassets_http_requests_total")
}

func TestAuthGroupIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim := middleware.NewRateLimiter(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: 10 * time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}, rdb, nil)
	a := newApp(t, lim)

	body := `{"username":"frank","password":"wrong"}`
	for i := 0; i < 3; i++ {
		rec, _ := a.call(t, http.MethodPost, "/auth/token", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, _ := a.call(t, http.MethodPost, "/auth/token", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Routes outside /auth are not limited.
	rec, _ = a.call(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
