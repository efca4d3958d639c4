// Package access decides whether a protected view may render for a session.
//
// The decision is advisory: it shapes navigation, while the record store's
// row-level security and privileged procedures remain the authority.
package access

import (
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/session"
)

// Outcome is the result of evaluating a Requirement against a session.
type Outcome int

const (
	// Loading means the session is still resolving; show a loading indicator.
	Loading Outcome = iota
	// RedirectSignIn sends anonymous visitors to the sign-in entry point.
	RedirectSignIn
	// Provisioning means the user is signed in but the profile row is not there yet.
	Provisioning
	// RedirectUnauthorized is a genuine authorization failure.
	RedirectUnauthorized
	// Render lets the protected content through.
	Render
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case RedirectSignIn:
		return "redirect_sign_in"
	case Provisioning:
		return "provisioning"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	case Render:
		return "render"
	}
	return "unknown"
}

const (
	SignInPath       = "/auth"
	UnauthorizedPath = "/unauthorized"
)

// Requirement is the role constraint declared by a protected view. The zero
// value admits any signed-in user with a profile.
type Requirement struct {
	Role  domain.Role
	AnyOf []domain.Role
}

// RequireRole admits exactly role.
func RequireRole(role domain.Role) Requirement { return Requirement{Role: role} }

// RequireAnyOf admits any of roles.
func RequireAnyOf(roles ...domain.Role) Requirement { return Requirement{AnyOf: roles} }

// Decision is an Outcome plus the redirect target, if any.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Evaluate applies the guard rules in order; the first match wins.
func Evaluate(s session.State, req Requirement) Decision {
	switch {
	case s.Loading:
		return Decision{Outcome: Loading}
	case s.User == nil:
		return Decision{Outcome: RedirectSignIn, Redirect: SignInPath}
	case s.Profile == nil:
		return Decision{Outcome: Provisioning}
	case req.Role != "" && s.Profile.Role != req.Role:
		return Decision{Outcome: RedirectUnauthorized, Redirect: UnauthorizedPath}
	case len(req.AnyOf) > 0 && !s.Profile.HasRole(req.AnyOf...):
		return Decision{Outcome: RedirectUnauthorized, Redirect: UnauthorizedPath}
	}
	return Decision{Outcome: Render}
}
