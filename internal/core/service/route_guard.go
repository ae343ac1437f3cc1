package service

import "github.com/connectmarket/session-gateway/internal/core/domain"

// GuardOutcome is the terminal branch of an access evaluation. Wait applies
// only while the initial session lookup is unsettled; redirecting during
// that window would bounce an about-to-be-confirmed user to a login page.
type GuardOutcome int

const (
	GuardWait GuardOutcome = iota
	GuardAllow
	GuardRedirect
)

// GuardDecision is the result of evaluating a snapshot against a required
// role set. Target is populated only for GuardRedirect.
type GuardDecision struct {
	Outcome GuardOutcome
	Target  string
}

// entryPoint pairs a role with its login surface. Order is the documented
// redirect precedence: always prefer the most privileged route that was
// actually required, so the tie-break stays visible and testable instead of
// living in nested conditionals.
type entryPoint struct {
	role domain.Role
	path string
}

var entryPrecedence = []entryPoint{
	{domain.RoleAdmin, "/admin/login"},
	{domain.RoleBuyer, "/buyer/login"},
	{domain.RoleSeller, "/login"},
}

// dashboards maps each role to its home surface, used when an authenticated
// user lands on a surface belonging to a different role.
var dashboards = map[domain.Role]string{
	domain.RoleAdmin:  "/admin/dashboard",
	domain.RoleBuyer:  "/buyer/dashboard",
	domain.RoleSeller: "/dashboard",
}

// EvaluateAccess decides whether a snapshot may enter a subtree restricted
// to the given roles. It holds no state of its own: every call recomputes
// the decision purely from its inputs.
func EvaluateAccess(snap domain.Snapshot, required map[domain.Role]bool) GuardDecision {
	if snap.Loading {
		return GuardDecision{Outcome: GuardWait}
	}
	if snap.User != nil && required[snap.Role] {
		return GuardDecision{Outcome: GuardAllow}
	}
	return GuardDecision{Outcome: GuardRedirect, Target: EntryPointFor(required)}
}

// EntryPointFor picks the login surface for a required role set by walking
// the precedence table in order. An empty or unknown set falls back to the
// least privileged entry.
func EntryPointFor(required map[domain.Role]bool) string {
	for _, ep := range entryPrecedence {
		if required[ep.role] {
			return ep.path
		}
	}
	return entryPrecedence[len(entryPrecedence)-1].path
}

// DashboardFor returns the home surface for a role, or the seller dashboard
// for anything outside the known taxonomy.
func DashboardFor(role domain.Role) string {
	if p, ok := dashboards[role]; ok {
		return p
	}
	return dashboards[domain.RoleSeller]
}

// RequireRoles builds a role set from its arguments.
func RequireRoles(roles ...domain.Role) map[domain.Role]bool {
	set := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}
