package service

import (
	"time"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	authTable         = "auth.users"
	profilesTable     = "profiles"
	applicationsTable = "client_applications"
)

type auditEvent struct {
	action    string
	table     string
	recordID  string
	oldValues map[string]any
	newValues map[string]any
}

// record hands an entry to the sink. A nil sink disables auditing.
func record(sink ports.AuditSink, actor ports.Actor, ev auditEvent) {
	if sink == nil {
		return
	}
	sink.Record(domain.AuditEntry{
		UserID:    actor.UserID,
		Action:    ev.action,
		TableName: ev.table,
		RecordID:  ev.recordID,
		OldValues: ev.oldValues,
		NewValues: ev.newValues,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		CreatedAt: time.Now().UTC(),
	})
}
