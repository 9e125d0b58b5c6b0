package middleware // HTTP middleware shared by the route groups

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SubjectKey is the echo context key under which JWTAuth stores the
// authenticated identity.
const SubjectKey = "subject"

// TokenResolver turns a raw bearer token into the identity it asserts.
type TokenResolver interface {
	Resolve(token string) (string, error)
}

// JWTAuth validates the Bearer access token on every request and stores the
// token's subject under SubjectKey.  Missing, malformed, tampered and
// expired tokens all get the same 401 with a WWW-Authenticate challenge.
func JWTAuth(resolver TokenResolver) echo.MiddlewareFunc {
	// The outer function runs once when the middleware is registered.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler runs for each incoming request.
		return func(c echo.Context) error {
			// Read the Authorization header and split off the scheme.  No
			// header, or a scheme other than Bearer, means the caller never
			// tried to authenticate.
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c, "not authenticated")
			}

			// Signature, algorithm and expiry are checked by the resolver.
			// Tampered and expired tokens get the same message.
			subject, err := resolver.Resolve(raw)
			if err != nil {
				return unauthorized(c, "invalid or expired token")
			}

			// Downstream handlers read the identity through Subject(c).
			c.Set(SubjectKey, subject)
			return next(c)
		}
	}
}

// bearerToken extracts the credentials from an Authorization header.  The
// scheme name is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Subject returns the identity stored by JWTAuth, or "" on unauthenticated
// routes.
func Subject(c echo.Context) string {
	s, _ := c.Get(SubjectKey).(string)
	return s
}

func unauthorized(c echo.Context, msg string) error {
	// Challenge header so clients know which scheme to retry with.
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
