package model

import "time"

// Roles carried in the JWT "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  Handlers never expose PasswordHash.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	Name         – display name shown next to reviews.
//	PasswordHash – bcrypt hashed password.
//	Role         – USER or ADMIN.
//	IsVIP        – whether the user holds an active VIP membership.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsVIP        bool      // users.is_vip
	CreatedAt    time.Time // users.created_at
}
