package handler

import (
	"net/http"

	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/service"
)

// resultStatus picks the HTTP status for a result envelope. The envelope
// body is returned unchanged whatever the status.
func resultStatus(res ports.Result, success int) int {
	if res.Success {
		return success
	}
	switch res.Error {
	case service.CodeValidation, service.CodePasswordMismatch, service.CodePasswordTooShort, service.CodeInvalidEmail:
		return http.StatusBadRequest
	case service.CodeInsufficientPermission:
		return http.StatusForbidden
	case service.CodeUserNotFound:
		return http.StatusNotFound
	case service.CodeAdminExists, service.CodeAlreadyAdmin:
		return http.StatusConflict
	case service.CodeDatabase, service.CodeRPC, service.CodeAuth:
		return http.StatusBadGateway
	case service.CodeUnexpected:
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}
