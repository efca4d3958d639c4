package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/ports"
)

// SetupHandler serves the one-time first-admin setup page.
type SetupHandler struct {
	bootstrap ports.BootstrapService
	strategy  string
}

func NewSetupHandler(bootstrap ports.BootstrapService, strategy string) *SetupHandler {
	return &SetupHandler{bootstrap: bootstrap, strategy: strategy}
}

type bootstrapRequest struct {
	Email           string `json:"email"            form:"email"`
	Password        string `json:"password"         form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// Status reports whether an administrator already exists.
//
// @Summary      First-admin setup status
// @Tags         setup
// @Produce      json
// @Success      200  {object}  ports.BootstrapStatus
// @Failure      503  {object}  map[string]string
// @Router       /admin-setup [get]
func (h *SetupHandler) Status(c echo.Context) error {
	status, err := h.bootstrap.Status(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Unable to verify admin status. Please try again.")
	}
	return c.JSON(http.StatusOK, status)
}

// Bootstrap creates the first administrator.
//
// @Summary      Create the first admin
// @Tags         setup
// @Accept       json
// @Produce      json
// @Param        body  body      bootstrapRequest  true  "Admin credentials"
// @Success      201   {object}  ports.Result
// @Failure      400   {object}  ports.Result
// @Failure      409   {object}  ports.Result
// @Failure      502   {object}  ports.Result
// @Router       /admin-setup [post]
func (h *SetupHandler) Bootstrap(c echo.Context) error {
	var req bootstrapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	client, err := authClient(c)
	if err != nil {
		return err
	}

	res := h.bootstrap.Bootstrap(c.Request().Context(), client, ports.BootstrapRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, middleware.ActorFrom(c))

	metrics.BootstrapOutcomesTotal.WithLabelValues(h.strategy, metrics.Result(res.Success, res.Error)).Inc()

	return c.JSON(resultStatus(res, http.StatusCreated), res)
}
