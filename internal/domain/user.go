package domain

import "time"

// User is the local projection of an account owned by the identity
// provider. Only what the negotiation flow needs is kept.
type User struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	UserRoleCustomer = "customer"
	UserRoleCreator  = "creator"
	UserRoleAdmin    = "admin"
)

func (u *User) IsCreator() bool {
	return u.Role == UserRoleCreator
}
