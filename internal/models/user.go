package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account stored in the users collection.
type User struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	Name      string             `json:"name"      bson:"name"`
	Email     string             `json:"email"     bson:"email"`
	Password  string             `json:"-"         bson:"password"` // bcrypt hash, never serialized
	IsAdmin   bool               `json:"isAdmin"   bson:"isAdmin"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserView is the public projection returned by register, login and profile updates.
type UserView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin *bool  `json:"isAdmin,omitempty"`
}

// View projects u without the admin flag.
func (u *User) View() UserView {
	return UserView{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
}

// AdminView projects u including the admin flag.
func (u *User) AdminView() UserView {
	v := u.View()
	isAdmin := u.IsAdmin
	v.IsAdmin = &isAdmin
	return v
}

// AuthResult is returned by register, login and profile update.
type AuthResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// RegisterRequest is the JSON body for POST /api/users/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the JSON body for PUT /api/users/me.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}
