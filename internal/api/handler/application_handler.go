package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// ApplicationHandler accepts partnership requests from the public site.
type ApplicationHandler struct {
	applications ports.ApplicationService
}

func NewApplicationHandler(applications ports.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

type applicationRequest struct {
	Email         string `json:"email"                    form:"email"          validate:"required,email"`
	OrgName       string `json:"org_name"                 form:"org_name"       validate:"required,max=200"`
	Description   string `json:"description"              form:"description"    validate:"required,max=5000"`
	BudgetRange   string `json:"budget_range"             form:"budget_range"   validate:"required"`
	ContactPerson string `json:"contact_person,omitempty" form:"contact_person" validate:"max=200"`
	Phone         string `json:"phone,omitempty"          form:"phone"          validate:"max=50"`
	Website       string `json:"website,omitempty"        form:"website"        validate:"omitempty,url"`
}

// Submit records a new client application for review.
//
// @Summary      Submit a client application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        body  body      applicationRequest  true  "Application"
// @Success      201   {object}  domain.ClientApplication
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /applications [post]
func (h *ApplicationHandler) Submit(c echo.Context) error {
	var req applicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	app, err := h.applications.Submit(c.Request().Context(), &domain.ClientApplication{
		Email:         req.Email,
		OrgName:       req.OrgName,
		Description:   req.Description,
		BudgetRange:   req.BudgetRange,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Website:       req.Website,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, app)
}
