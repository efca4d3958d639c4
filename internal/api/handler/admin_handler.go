package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const defaultAuditLimit = 50

// AdminHandler serves the admin console. Every route sits behind the admin
// guard; the record store re-checks privileges on each call.
type AdminHandler struct {
	promotion    ports.PromotionService
	applications ports.ApplicationService
	admin        ports.AdminService
}

func NewAdminHandler(promotion ports.PromotionService, applications ports.ApplicationService, admin ports.AdminService) *AdminHandler {
	return &AdminHandler{promotion: promotion, applications: applications, admin: admin}
}

type promoteRequest struct {
	Email string `json:"email" form:"email"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

// Promote grants the admin role to an existing user.
//
// @Summary      Promote a user to admin
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      promoteRequest  true  "Target user"
// @Success      200   {object}  ports.Result
// @Failure      400   {object}  ports.Result
// @Failure      403   {object}  ports.Result
// @Failure      404   {object}  ports.Result
// @Failure      409   {object}  ports.Result
// @Router       /admin/promote [post]
func (h *AdminHandler) Promote(c echo.Context) error {
	var req promoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res := h.promotion.Promote(c.Request().Context(), middleware.ActorFrom(c), req.Email)
	metrics.PromotionOutcomesTotal.WithLabelValues(metrics.Result(res.Success, res.Error)).Inc()
	return c.JSON(resultStatus(res, http.StatusOK), res)
}

// Overview returns the dashboard totals.
//
// @Summary      Admin overview
// @Tags         admin
// @Produce      json
// @Success      200  {object}  ports.Overview
// @Router       /admin/overview [get]
func (h *AdminHandler) Overview(c echo.Context) error {
	ov, err := h.admin.Overview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ov)
}

// Users lists every profile visible to the caller.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Success      200  {object}  listResponse[domain.Profile]
// @Router       /admin/users [get]
func (h *AdminHandler) Users(c echo.Context) error {
	users, err := h.admin.Users(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(users))
}

// Applications lists client applications, newest first.
//
// @Summary      List client applications
// @Tags         admin
// @Produce      json
// @Param        status  query     string  false  "pending, approved or rejected"
// @Success      200     {object}  listResponse[domain.ClientApplication]
// @Failure      400     {object}  map[string]string
// @Router       /admin/applications [get]
func (h *AdminHandler) Applications(c echo.Context) error {
	status := domain.ApplicationStatus(c.QueryParam("status"))
	switch status {
	case "", domain.ApplicationPending, domain.ApplicationApproved, domain.ApplicationRejected:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "status must be one of: pending approved rejected")
	}

	apps, err := h.applications.List(c.Request().Context(), ports.ApplicationFilter{Status: status})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(apps))
}

// Approve accepts a pending application.
//
// @Summary      Approve an application
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "Application id"
// @Success      200  {object}  domain.ClientApplication
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /admin/applications/{id}/approve [post]
func (h *AdminHandler) Approve(c echo.Context) error {
	return h.decide(c, domain.ApplicationApproved)
}

// Reject declines a pending application.
//
// @Summary      Reject an application
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "Application id"
// @Success      200  {object}  domain.ClientApplication
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /admin/applications/{id}/reject [post]
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.decide(c, domain.ApplicationRejected)
}

func (h *AdminHandler) decide(c echo.Context, status domain.ApplicationStatus) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "application id is required")
	}
	app, err := h.applications.Decide(c.Request().Context(), middleware.ActorFrom(c), id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}

// Audit returns the most recent audit entries.
//
// @Summary      Recent audit log
// @Tags         admin
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries (default 50)"
// @Success      200    {object}  listResponse[domain.AuditEntry]
// @Failure      400    {object}  map[string]string
// @Router       /admin/audit [get]
func (h *AdminHandler) Audit(c echo.Context) error {
	limit := int64(defaultAuditLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	entries, err := h.admin.AuditLog(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(entries))
}
