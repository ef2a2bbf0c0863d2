package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/ekarpov/bookvault/pkg/openid"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "

	claimsKey = "claims"
)

// AuthConfig names the issuer whose tokens the API accepts. Audience is the
// client id the tokens must be minted for.
type AuthConfig struct {
	Issuer   string `yaml:"issuer" envconfig:"AUTH_ISSUER"`
	Audience string `yaml:"audience" envconfig:"AUTH_AUDIENCE"`
}

// KeycloakAuth validates bearer tokens against the realm's JWKS and leaves
// an openid.JwtHelper in the echo context for downstream role checks.
func KeycloakAuth(cfg AuthConfig) (echo.MiddlewareFunc, error) {
	issuerURL, err := url.Parse(strings.TrimSuffix(cfg.Issuer, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, "parse issuer url")
	}
	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build jwt validator")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}
			token := strings.TrimPrefix(authorization, bearer)

			if _, err := jwtValidator.ValidateToken(c.Request().Context(), token); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
			}

			// signature is verified above; the helper only reads claims
			helper, err := openid.FromToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
			}
			c.Set(claimsKey, helper)

			return next(c)
		}
	}, nil
}

// RequireRealmRole rejects requests whose token lacks the realm role. Must
// run after KeycloakAuth.
func RequireRealmRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			helper, ok := c.Get(claimsKey).(*openid.JwtHelper)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Token Claims")
			}
			if !helper.IsUserInRealmRole(role) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient Role")
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id, the token's sub claim.
func UserID(c echo.Context) (uuid.UUID, error) {
	helper, ok := c.Get(claimsKey).(*openid.JwtHelper)
	if !ok {
		return uuid.Nil, errors.New("no token claims in context")
	}
	id, err := uuid.Parse(helper.Subject())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "parse subject")
	}
	return id, nil
}

// Claims returns the token helper left by KeycloakAuth, if any.
func Claims(c echo.Context) (*openid.JwtHelper, bool) {
	helper, ok := c.Get(claimsKey).(*openid.JwtHelper)
	return helper, ok
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
