package domain

import (
	"regexp"
	"time"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStatus represents the lifecycle state of an account.
type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusBanned   UserStatus = "banned"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive, StatusBanned:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Photo holds metadata about an uploaded avatar. The file itself lives
// outside this service.
type Photo struct {
	Mime string `json:"mime" bson:"mime"`
	File string `json:"file" bson:"file"`
}

// User is the aggregate stored in the directory.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Surname      string     `json:"surname"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone"`
	Age          *int       `json:"age,omitempty"`
	Gender       Gender     `json:"gender,omitempty"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Photo        *Photo     `json:"photo,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

var idPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// ValidateID rejects anything that is not a 24-character hexadecimal
// identifier.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}
