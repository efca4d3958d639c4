package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
)

// DefaultCookieName names the browser session cookie.
const DefaultCookieName = "sid"

// SessionRegistry hands out Session Contexts.
type SessionRegistry interface {
	Get(ctx context.Context, sid string) (*session.Context, error)
	Ephemeral(ctx context.Context, accessToken string) *session.Context
	Anonymous(ctx context.Context) *session.Context
}

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Registry   SessionRegistry
	CookieName string
	TTL        time.Duration
	Secure     bool
	Log        zerolog.Logger
}

// Session attaches the caller's Session Context. Bearer requests verified by
// Auth get a throwaway context closed after the request; browsers get the
// context registered under their session cookie, issuing a cookie on first
// visit. Record-store calls made while handling the request run as the
// signed-in user. When the stored session cannot be read the request
// continues signed out.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if token, ok := c.Get(ctxAccessToken).(string); ok && token != "" {
				sc := cfg.Registry.Ephemeral(ctx, token)
				defer sc.Close()
				SetSession(c, "", sc)
				c.SetRequest(c.Request().WithContext(ports.WithAccessToken(ctx, token)))
				return next(c)
			}

			sid := sessionCookie(c, cfg.CookieName)
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sc, err := cfg.Registry.Get(ctx, sid)
			if err != nil {
				cfg.Log.Warn().Err(err).Str("sid", sid).Msg("session unavailable, continuing signed out")
				sc = cfg.Registry.Anonymous(ctx)
				defer sc.Close()
			}
			SetSession(c, sid, sc)

			token, err := sc.Client().AccessToken(ctx)
			if err != nil {
				cfg.Log.Warn().Err(err).Str("sid", sid).Msg("access token unavailable")
			}
			if token != "" {
				c.SetRequest(c.Request().WithContext(ports.WithAccessToken(ctx, token)))
			}
			return next(c)
		}
	}
}

// sessionCookie returns the session id from the cookie if it is well formed.
func sessionCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}
