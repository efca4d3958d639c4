package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/service"
)

func TestSetupHandler_Status(t *testing.T) {
	stub := &stubBootstrapService{
		statusFn: func(context.Context) (*ports.BootstrapStatus, error) {
			return &ports.BootstrapStatus{HasAdmin: false, SetupRequired: true, Strategy: "atomic"}, nil
		},
	}
	h := NewSetupHandler(stub, "atomic")

	c, rec := newContext(http.MethodGet, "/admin-setup", "", nil)
	if err := h.Status(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp ports.BootstrapStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.SetupRequired || resp.HasAdmin || resp.Strategy != "atomic" {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestSetupHandler_StatusCheckFailure(t *testing.T) {
	stub := &stubBootstrapService{
		statusFn: func(context.Context) (*ports.BootstrapStatus, error) {
			return nil, errors.New("rpc down")
		},
	}
	h := NewSetupHandler(stub, "atomic")

	c, _ := newContext(http.MethodGet, "/admin-setup", "", nil)
	err := h.Status(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestSetupHandler_Bootstrap(t *testing.T) {
	cases := []struct {
		name   string
		result ports.Result
		want   int
	}{
		{"created", ports.Result{Success: true, Message: "Admin account created successfully"}, http.StatusCreated},
		{"admin exists", ports.Result{Error: service.CodeAdminExists, Message: "An admin already exists"}, http.StatusConflict},
		{"too short", ports.Result{Error: service.CodePasswordTooShort, Message: "Password must be at least 8 characters long"}, http.StatusBadRequest},
		{"check failed", ports.Result{Error: service.CodeDatabase}, http.StatusBadGateway},
		{"creation failed", ports.Result{Error: service.CodeCreationFailed}, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubBootstrapService{
				bootstrapFn: func(_ context.Context, req ports.BootstrapRequest) ports.Result {
					if req.Email != "root@example.com" || req.ConfirmPassword != "longenough" {
						t.Fatalf("unexpected request: %+v", req)
					}
					return tc.result
				},
			}
			h := NewSetupHandler(stub, "atomic")

			c, rec := newContext(http.MethodPost, "/admin-setup",
				`{"email":"root@example.com","password":"longenough","confirm_password":"longenough"}`,
				newSession(newStubIdentity(), ""))
			if err := h.Bootstrap(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}

			var resp ports.Result
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Success != tc.result.Success || resp.Error != tc.result.Error {
				t.Fatalf("envelope changed: %+v", resp)
			}
		})
	}
}
