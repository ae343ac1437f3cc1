package domain

import "time"

// Role determines which dashboards and routes an actor may reach.
// RoleGuest is derived, never stored: it means "no user".
type Role string

const (
	RoleGuest  Role = "guest"
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a server-provided role string to a Role. Values outside the
// known taxonomy collapse to RoleGuest so guards treat them as anonymous
// until the taxonomy is extended.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return Role(s)
	default:
		return RoleGuest
	}
}

// User models an account in the marketplace. The gateway holds a read-mostly
// cached copy owned by the remote session API; it is only ever replaced
// wholesale with a record echoed by the server, never synthesized locally.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"location,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectiveRole is the single place role derivation happens: guest when no
// user is cached, otherwise the user's parsed role.
func EffectiveRole(u *User) Role {
	if u == nil {
		return RoleGuest
	}
	return ParseRole(string(u.Role))
}
