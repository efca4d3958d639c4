package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
)

const (
	ctxAccessToken = "access_token"
	ctxUserID      = "user_id"
	ctxEmail       = "email"
	ctxSession     = "session"
	ctxSessionID   = "sid"
)

// SetSession attaches sc to the request. sid is empty for bearer requests.
func SetSession(c echo.Context, sid string, sc *session.Context) {
	c.Set(ctxSession, sc)
	if sid != "" {
		c.Set(ctxSessionID, sid)
	}
}

// SessionFrom returns the Session Context attached by the Session middleware.
func SessionFrom(c echo.Context) *session.Context {
	sc, _ := c.Get(ctxSession).(*session.Context)
	return sc
}

// SessionID returns the browser session id, or "" for bearer requests.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(ctxSessionID).(string)
	return sid
}

// StateFrom returns the current session state, or the anonymous state when
// no session is attached.
func StateFrom(c echo.Context) session.State {
	if sc := SessionFrom(c); sc != nil {
		return sc.State()
	}
	return session.State{}
}

// ActorFrom describes the caller for advisory role checks and audit.
func ActorFrom(c echo.Context) ports.Actor {
	actor := ports.Actor{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
	state := StateFrom(c)
	if state.User != nil {
		actor.UserID = state.User.ID
	} else if id, ok := c.Get(ctxUserID).(string); ok {
		actor.UserID = id
	}
	if state.Profile != nil {
		actor.Role = state.Profile.Role
	}
	return actor
}
