package domain

import "time"

// Audit actions recorded by the console.
const (
	AuditUserLogin          = "user_login"
	AuditUserLogout         = "user_logout"
	AuditFailedLogin        = "failed_login_attempt"
	AuditAdminAction        = "admin_action"
	AuditRoleChange         = "role_change"
	AuditApplicationDecided = "application_decided"
)

// AuditEntry is an append-only record of a security-relevant action.
type AuditEntry struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Action    string         `json:"action" bson:"action"`
	TableName string         `json:"table_name" bson:"table_name"`
	RecordID  string         `json:"record_id,omitempty" bson:"record_id,omitempty"`
	OldValues map[string]any `json:"old_values,omitempty" bson:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty" bson:"new_values,omitempty"`
	IPAddress string         `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}
