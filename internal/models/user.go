package models

// Role is the authorization level carried in the access token
type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
	RoleAdmin  Role = "admin"
)

// AuthUser is the authenticated caller attached to a request
type AuthUser struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsOwner reports whether the caller may manage listing images
func (u *AuthUser) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}
