package domain

// Role names carried in JWT claims.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
