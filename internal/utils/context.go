package utils

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserRoleKey  contextKey = "role"
	SessionKey   contextKey = "cart_session"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)
