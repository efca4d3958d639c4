package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// ConfirmHandler serves the email confirmation landing page.
type ConfirmHandler struct {
	confirmation ports.ConfirmationService
}

func NewConfirmHandler(confirmation ports.ConfirmationService) *ConfirmHandler {
	return &ConfirmHandler{confirmation: confirmation}
}

// Inspect classifies the link the user followed without completing it.
//
// @Summary      Inspect a confirmation link
// @Tags         confirm
// @Produce      json
// @Param        access_token       query     string  false  "Access token (token pair links)"
// @Param        refresh_token      query     string  false  "Refresh token (token pair links)"
// @Param        token_hash         query     string  false  "Token hash"
// @Param        type               query     string  false  "OTP type for token_hash links"
// @Param        code               query     string  false  "PKCE authorization code"
// @Param        error              query     string  false  "Error reported by the identity service"
// @Param        error_description  query     string  false  "Error description"
// @Success      200                {object}  ports.ConfirmationResult
// @Router       /confirm [get]
func (h *ConfirmHandler) Inspect(c echo.Context) error {
	var link domain.ConfirmationLink
	if err := c.Bind(&link); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid confirmation link")
	}
	return c.JSON(http.StatusOK, h.confirmation.Inspect(link))
}

// Confirm completes the link and binds the resulting session to the browser.
//
// @Summary      Complete a confirmation link
// @Tags         confirm
// @Accept       json
// @Produce      json
// @Param        body  body      domain.ConfirmationLink  true  "Link parameters"
// @Success      200   {object}  ports.ConfirmationResult
// @Failure      400   {object}  ports.ConfirmationResult
// @Router       /confirm [post]
func (h *ConfirmHandler) Confirm(c echo.Context) error {
	var link domain.ConfirmationLink
	if err := c.Bind(&link); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid confirmation link")
	}
	client, err := authClient(c)
	if err != nil {
		return err
	}

	res := h.confirmation.Confirm(c.Request().Context(), client, link, middleware.ActorFrom(c))
	metrics.ConfirmationsTotal.WithLabelValues(shapeLabel(res.Shape), string(res.Status)).Inc()

	status := http.StatusOK
	if res.Status == ports.ConfirmationError {
		status = http.StatusBadRequest
	}
	return c.JSON(status, res)
}

func shapeLabel(s domain.LinkShape) string {
	if s == domain.LinkNone {
		return "none"
	}
	return string(s)
}
