package models

// Principal identifies the authenticated actor performing an operation.
// Core operations receive it explicitly instead of reading ambient session
// state.
type Principal struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsTeacher reports whether the principal holds the teacher role.
func (p Principal) IsTeacher() bool {
	return p.Role == RoleTeacher
}
