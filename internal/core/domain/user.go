package domain

import (
	"slices"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User owns zero or more courses. Courses holds back-references only; the
// Course.Creator field is authoritative.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCourse reports whether the user holds a back-reference to courseID.
func (u *User) HasCourse(courseID string) bool {
	return slices.Contains(u.Courses, courseID)
}

// Identity is the caller resolved by the authentication layer.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// IdentityFor builds the identity of an authenticated user.
func IdentityFor(userID, role string) Identity {
	return Identity{UserID: userID, IsAdmin: role == RoleAdmin}
}
