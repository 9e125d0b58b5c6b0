package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/handler"
	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/middleware"
)

// Deps carries everything the routes need.  Metrics, Limiter and Log may be
// nil.
type Deps struct {
	Auth     *handler.AuthHandler
	Assets   *handler.AssetHandler
	Resolver middleware.TokenResolver
	Limiter  *middleware.RateLimiter
	Metrics  *metrics.Metrics
	Log      *zap.SugaredLogger
}

// New builds an echo instance with the global middleware and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes wires global middleware, the public routes, the /auth group
// and the protected /assets group.
func RegisterRoutes(e *echo.Echo, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(middleware.RequestLogger(log))
	if d.Metrics != nil {
		e.Use(middleware.Metrics(d.Metrics))
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	e.GET("/", handler.Index)
	e.GET("/healthz", handler.Health)

	jwt := middleware.JWTAuth(d.Resolver)

	// Register and token are unauthenticated; the limiter slows down
	// password guessing.
	auth := e.Group("/auth")
	if d.Limiter != nil {
		auth.Use(d.Limiter.Middleware())
	}
	auth.POST("/register", d.Auth.Register)
	auth.POST("/token", d.Auth.Token)
	auth.GET("/me", d.Auth.Me, jwt)

	assets := e.Group("/assets", jwt)
	assets.POST("", d.Assets.Create)
	assets.GET("", d.Assets.List)
	assets.GET("/:id", d.Assets.Get)
	assets.PUT("/:id", d.Assets.Update)
	assets.DELETE("/:id", d.Assets.Delete)
}
