package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthToken is one active session issued at login.
type AuthToken struct {
	Token   string    `json:"token"   bson:"token"`
	Created time.Time `json:"created" bson:"created"`
}

// User is a document in the MongoDB users collection. Password, Avatar and
// Tokens never leave the server.
type User struct {
	ID        primitive.ObjectID `json:"_id"       bson:"_id,omitempty"`
	Name      string             `json:"name"      bson:"name"`
	Email     string             `json:"email"     bson:"email"`
	Password  string             `json:"-"         bson:"password"`
	Age       int                `json:"age"       bson:"age"`
	Avatar    []byte             `json:"-"         bson:"avatar,omitempty"`
	Tokens    []AuthToken        `json:"-"         bson:"tokens"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// HasToken reports whether token is among the user's active tokens.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

// RegisterRequest is the JSON body for POST /users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

// LoginRequest is the JSON body for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /users/login.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// UserUpdates lists the keys PATCH /users/me accepts.
var UserUpdates = []string{"name", "email", "password", "age"}

// UserPatch holds the fields a PATCH /users/me request sets; nil means unchanged.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
}
