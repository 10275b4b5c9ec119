package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleSeller || r == RoleAdmin
}

// Identity is the caller resolved from a validated bearer token.
type Identity struct {
	ID   primitive.ObjectID `json:"id"`
	Role Role               `json:"role"`
}

func (i Identity) IsAdmin() bool  { return i.Role == RoleAdmin }
func (i Identity) IsSeller() bool { return i.Role == RoleSeller }
