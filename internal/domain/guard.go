package domain

// Role is the coarse permission level carried by the authentication context.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the already-verified caller of a service operation.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AuthorizeOwner allows record-level operations only for the activity's owner.
// Callers must look the activity up first so missing ids surface as ErrNotFound.
func AuthorizeOwner(activity *Activity, principal Principal) error {
	if activity == nil || principal.UserID == "" || activity.OwnerID != principal.UserID {
		return ErrNotOwner
	}
	return nil
}

// RequireRole gates admin endpoints; owner matching does not apply there.
func RequireRole(principal Principal, role Role) error {
	if principal.Role != role {
		if role == RoleAdmin {
			return ErrAdminRequired
		}
		return ErrForbidden
	}
	return nil
}
