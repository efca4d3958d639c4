package domain

import "time"

// ApplicationStatus is the review state of a client application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// applicationTransitions lists the allowed review decisions. Resolved
// applications have no outgoing transitions.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending: {ApplicationApproved, ApplicationRejected},
}

// CanTransitionTo reports whether an application in status s may move to next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ClientApplication is a partnership request submitted through the public form.
type ClientApplication struct {
	ID            string            `json:"id,omitempty"`
	Email         string            `json:"email"`
	OrgName       string            `json:"org_name"`
	Description   string            `json:"description"`
	BudgetRange   string            `json:"budget_range"`
	Status        ApplicationStatus `json:"status,omitempty"`
	ContactPerson string            `json:"contact_person,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Website       string            `json:"website,omitempty"`
	ReviewedBy    string            `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at,omitempty"`
}
