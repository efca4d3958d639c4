package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/core/access"
)

// ProvisioningMessage is shown while a signed-in user's profile row is missing.
const ProvisioningMessage = "Setting up your profile..."

type viewResponse struct {
	View    string `json:"view"`
	Message string `json:"message,omitempty"`
}

// Guard evaluates the access guard for the route group name against the
// caller's Session Context. Only Render reaches next; the other outcomes are
// answered here.
func Guard(name string, req access.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := access.Evaluate(StateFrom(c), req)
			metrics.GuardDecisionsTotal.WithLabelValues(name, decision.Outcome.String()).Inc()

			switch decision.Outcome {
			case access.Loading:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusAccepted, viewResponse{View: "loading"})
			case access.Provisioning:
				return c.JSON(http.StatusAccepted, viewResponse{View: "provisioning", Message: ProvisioningMessage})
			case access.RedirectSignIn, access.RedirectUnauthorized:
				return c.Redirect(http.StatusSeeOther, decision.Redirect)
			}
			return next(c)
		}
	}
}
