package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes the two kinds of account.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLandlord Role = "landlord"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleLandlord
}

// Room returns the realtime room name for a user of this role.
func (r Role) Room(userID string) string {
	return string(r) + "_" + userID
}

// User represents an account. Credentials are managed elsewhere.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Role          Role               `bson:"role" json:"role"`
	IsVerified    bool               `bson:"is_verified" json:"isVerified"`
	WalletAddress string             `bson:"wallet_address,omitempty" json:"walletAddress,omitempty"`
	Timestamps    `bson:",inline"`
}
