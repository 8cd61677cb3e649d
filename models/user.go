package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleSuperAdmin = "SuperAdmin"
	RoleAdmin      = "Admin"
	RoleTeamLead   = "TeamLead"
	RoleEmployee   = "Employee"
)

type User struct {
	ID             primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string              `json:"name" bson:"name,omitempty"`
	Email          string              `json:"email" bson:"email,omitempty"`
	Password       string              `json:"-" bson:"password,omitempty"`
	EmployeeID     string              `json:"employee_id" bson:"employee_id,omitempty"`
	Designation    string              `json:"designation" bson:"designation,omitempty"`
	Role           string              `json:"role" bson:"role,omitempty"`
	TeamID         *primitive.ObjectID `json:"team_id,omitempty" bson:"team_id,omitempty"`
	ProfilePicture string              `json:"profile_picture" bson:"profile_picture,omitempty"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at" bson:"updated_at,omitempty"`
}

// Summary is the roster-facing projection of a user, without credentials.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		EmployeeID:     u.EmployeeID,
		Designation:    u.Designation,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
	}
}

type UserSummary struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Name           string             `json:"name" bson:"name"`
	EmployeeID     string             `json:"employee_id" bson:"employee_id,omitempty"`
	Designation    string             `json:"designation" bson:"designation,omitempty"`
	Role           string             `json:"role" bson:"role,omitempty"`
	ProfilePicture string             `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
}

// Claims is the authenticated caller identity carried through the request.
type Claims struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Role   string             `json:"role"`
}

// IsPrivileged reports whether the caller may act on behalf of another
// user and supply a manual event time.
func (c *Claims) IsPrivileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleSuperAdmin
}

// CanModerate reports whether the caller may approve sessions.
func (c *Claims) CanModerate() bool {
	return c.Role == RoleAdmin || c.Role == RoleSuperAdmin || c.Role == RoleTeamLead
}

type UserRegisterPayload struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=50,hasuppercase"`
	EmployeeID  string `json:"employee_id" validate:"required"`
	Designation string `json:"designation"`
	Role        string `json:"role" validate:"omitempty,oneof=SuperAdmin Admin TeamLead Employee"`
}

type UserLoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordPayload struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=50,hasuppercase"`
}

type UserUpdatePayload struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	EmployeeID  string `json:"employee_id,omitempty"`
	Designation string `json:"designation,omitempty"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=SuperAdmin Admin TeamLead Employee"`
}

type UpdateRolePayload struct {
	Role string `json:"role" validate:"required,oneof=SuperAdmin Admin TeamLead Employee"`
}

type ResetPasswordPayload struct {
	Password string `json:"password" validate:"required,min=8,max=50,hasuppercase"`
}
