package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/domain"
)

// ViewHandler answers the page routes with the data each view renders.
type ViewHandler struct {
	siteName string
}

func NewViewHandler(siteName string) *ViewHandler {
	return &ViewHandler{siteName: siteName}
}

type viewResponse struct {
	View    string          `json:"view"`
	Message string          `json:"message,omitempty"`
	User    *domain.User    `json:"user,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
	Links   []string        `json:"links,omitempty"`
}

// Index describes the public marketing site.
//
// @Summary      Site index
// @Tags         views
// @Produce      json
// @Success      200  {object}  viewResponse
// @Router       / [get]
func (h *ViewHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, viewResponse{
		View:    "home",
		Message: h.siteName,
		Links:   []string{"/auth", "/applications", "/dashboard", "/studio", "/admin"},
	})
}

// SignIn is the sign-in entry point anonymous visitors are sent to.
//
// @Summary      Sign-in page
// @Tags         views
// @Produce      json
// @Success      200  {object}  viewResponse
// @Router       /auth [get]
func (h *ViewHandler) SignIn(c echo.Context) error {
	state := middleware.StateFrom(c)
	return c.JSON(http.StatusOK, viewResponse{View: "auth", User: state.User, Profile: state.Profile})
}

// Unauthorized is the fallback for signed-in users lacking the required role.
//
// @Summary      Unauthorized page
// @Tags         views
// @Produce      json
// @Success      200  {object}  viewResponse
// @Router       /unauthorized [get]
func (h *ViewHandler) Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusOK, viewResponse{
		View:    "unauthorized",
		Message: "You do not have permission to view this page.",
	})
}

// Protected renders a guarded view for the signed-in user.
func (h *ViewHandler) Protected(view string) echo.HandlerFunc {
	return func(c echo.Context) error {
		state := middleware.StateFrom(c)
		return c.JSON(http.StatusOK, viewResponse{View: view, User: state.User, Profile: state.Profile})
	}
}
