package models

import (
	"fmt"
	"time"

	"github.com/studentreminder/reminder/internal/common"
)

// Role is the kind of account an identity holds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrInvalidInput, s)
	}
	return r, nil
}

// User is a registered identity. The id is assigned at signup and never changes.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a copy that shares no pointers with u.
func (u User) Clone() User {
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		u.UpdatedAt = &t
	}
	return u
}

// Account is a directory record: the identity plus its credential.
// PasswordHash is empty for accounts created while password checks were disabled.
type Account struct {
	User
	PasswordHash string `json:"passwordHash,omitempty"`
}

func (a Account) Clone() Account {
	a.User = a.User.Clone()
	return a
}
