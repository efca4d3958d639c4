package domain

import "time"

// Role controls which parts of the console a profile may reach.
type Role string

const (
	RoleNormal Role = "normal"
	RoleClient Role = "client"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RoleClient, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMember, RoleClient, RoleNormal}
}

// ProfileStatus is the account standing of a profile.
type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "pending"
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// Profile is the record-store row keyed by the identity-service user id.
// Exactly one profile exists per identity account; it is created remotely
// when the account is created and its role only changes through promotion.
type Profile struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Role      Role          `json:"role"`
	Status    ProfileStatus `json:"status"`
	SubRole   string        `json:"sub_role,omitempty"`
	FullName  string        `json:"full_name,omitempty"`
	AvatarURL string        `json:"avatar_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// HasRole reports whether the profile carries any of the given roles.
func (p *Profile) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// ProfileUpdate carries the mutable profile columns. Nil fields are left untouched.
type ProfileUpdate struct {
	Role   *Role          `json:"role,omitempty"`
	Status *ProfileStatus `json:"status,omitempty"`
}
