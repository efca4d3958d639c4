package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/infrastructure/db/redis"
)

// Limiter counts requests against a fixed-window budget.
type Limiter interface {
	Allow(ctx context.Context, scope, key string, limit redis.Limit) (redis.Verdict, error)
}

// RateLimit applies limit to each client IP under scope. A limiter failure
// lets the request through.
func RateLimit(l Limiter, scope string, limit redis.Limit, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			verdict, err := l.Allow(c.Request().Context(), scope, c.RealIP(), limit)
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(limit.Requests, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(verdict.Remaining, 10))
			if !verdict.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(verdict.ResetIn.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}
