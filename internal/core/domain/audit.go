package domain

import "time"

// AuditAction enumerates the session lifecycle events the gateway records.
type AuditAction string

const (
	AuditLogin        AuditAction = "login"
	AuditRegister     AuditAction = "register"
	AuditGoogleAuth   AuditAction = "google_auth"
	AuditLogout       AuditAction = "logout"
	AuditRoleMismatch AuditAction = "role_mismatch"
)

// AuditEvent is one entry in the authentication audit trail. Writes are
// best-effort: a failed audit write never fails the operation it describes.
type AuditEvent struct {
	ID        string
	Action    AuditAction
	UserID    string
	Email     string
	Role      Role
	Succeeded bool
	Detail    string
	At        time.Time
}
