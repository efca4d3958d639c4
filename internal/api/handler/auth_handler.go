package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
)

const streamBuffer = 16

// SessionDropper forgets the Session Context of a signed-out browser.
type SessionDropper interface {
	Drop(sid string)
}

type AuthHandler struct {
	authService ports.AuthService
	sessions    SessionDropper
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, sessions SessionDropper, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, log: log}
}

type signUpRequest struct {
	Email           string `json:"email"            form:"email"`
	Password        string `json:"password"         form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type signUpResponse struct {
	User              *domain.User `json:"user,omitempty"`
	NeedsVerification bool         `json:"needs_verification"`
	Message           string       `json:"message"`
}

type signInRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SignUp registers an account and binds any issued session to the browser.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details"
// @Success      201   {object}  signUpResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	client, err := authClient(c)
	if err != nil {
		return err
	}

	res, err := h.authService.SignUp(c.Request().Context(), client, ports.SignUpRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, middleware.ActorFrom(c))
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", attemptResult(err)).Inc()
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()

	resp := signUpResponse{User: res.User, NeedsVerification: res.Session == nil}
	if resp.NeedsVerification {
		resp.Message = "Check your email to confirm your account."
	} else {
		resp.Message = "Account created."
	}
	return c.JSON(http.StatusCreated, resp)
}

// SignIn authenticates with email and password and returns the resolved
// session state.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sc := middleware.SessionFrom(c)
	if sc == nil {
		return domain.ErrNotAuthenticated
	}

	ctx := c.Request().Context()
	if _, err := h.authService.SignIn(ctx, sc.Client(), req.Email, req.Password, middleware.ActorFrom(c)); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signin", attemptResult(err)).Inc()
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signin", "success").Inc()

	return c.JSON(http.StatusOK, sc.Resolve(ctx))
}

// SignOut ends the browser session.
//
// @Summary      Sign out
// @Tags         auth
// @Success      204
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	client, err := authClient(c)
	if err != nil {
		return err
	}
	if err := h.authService.SignOut(c.Request().Context(), client, middleware.ActorFrom(c)); err != nil {
		h.log.Warn().Err(err).Msg("remote sign-out failed, local session cleared")
		metrics.AuthAttemptsTotal.WithLabelValues("signout", "error").Inc()
	} else {
		metrics.AuthAttemptsTotal.WithLabelValues("signout", "success").Inc()
	}
	if sid := middleware.SessionID(c); sid != "" {
		h.sessions.Drop(sid)
	}
	return c.NoContent(http.StatusNoContent)
}

// Session returns the caller's current session state.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  session.State
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.StateFrom(c))
}

// Stream pushes every published session state as a server-sent event until
// the client disconnects.
//
// @Summary      Session state stream
// @Tags         auth
// @Produce      text/event-stream
// @Success      200
// @Router       /auth/session/stream [get]
func (h *AuthHandler) Stream(c echo.Context) error {
	sc := middleware.SessionFrom(c)
	if sc == nil {
		return domain.ErrNotAuthenticated
	}

	states := make(chan session.State, streamBuffer)
	unsubscribe := sc.Subscribe(func(s session.State) {
		select {
		case states <- s:
		default:
			h.log.Debug().Msg("session stream lagging, state dropped")
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeState(res, sc.State()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			if err := writeState(res, s); err != nil {
				return nil
			}
		}
	}
}

func writeState(res *echo.Response, s session.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// authClient returns the auth client of the caller's Session Context.
func authClient(c echo.Context) (ports.AuthClient, error) {
	sc := middleware.SessionFrom(c)
	if sc == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return sc.Client(), nil
}

func attemptResult(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUserExists):
		return "invalid"
	}
	return "error"
}
