package users

import (
	"strings"
	"time"
)

// User is a registered account. Email is stored lower-cased.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	Email        string    `gorm:"column:email;size:254;not null;uniqueIndex"`
	Username     string    `gorm:"column:username;size:150;not null;uniqueIndex"`
	FirstName    string    `gorm:"column:first_name;size:150;not null"`
	LastName     string    `gorm:"column:last_name;size:150;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// AuthToken records an issued bearer token. A token is accepted only while its row exists.
type AuthToken struct {
	TokenID   string    `gorm:"column:token_id;primaryKey;size:36"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing issued tokens.
func (AuthToken) TableName() string {
	return "auth_tokens"
}

// RegisterInput is the payload of a sign-up request.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128,notnumeric"`
}

// LoginInput is the payload of a token login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the profile fields a user may change; nil fields are left alone.
type ProfileUpdate struct {
	Username  *string `json:"username" validate:"omitnil,min=1,max=150,username"`
	FirstName *string `json:"first_name" validate:"omitnil,min=1,max=150"`
	LastName  *string `json:"last_name" validate:"omitnil,min=1,max=150"`
}

// PasswordChange is the payload of a set_password request.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,notnumeric"`
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
