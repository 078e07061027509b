package models

// User is a staff member allowed to build offers
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	IsStaff      bool   `json:"isStaff"`
	IsActive     bool   `json:"isActive"`
}

// LoginRequest is the body of POST /login
// Example: {"username": "manager", "password": "secret"}
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
