package models

import (
	"time"
)

type User struct {
	UserID       int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname    string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname    string     `gorm:"column:user_lname" json:"user_lname"`
	Email        string     `gorm:"column:email;unique" json:"email"`
	Password     string     `gorm:"column:password" json:"-"`
	RoleID       int        `gorm:"column:role_id" json:"role_id"`
	SchoolID     *int       `gorm:"column:school_id" json:"school_id,omitempty"`
	DepartmentID *int       `gorm:"column:department_id" json:"department_id,omitempty"`
	Designation  *string    `gorm:"column:designation" json:"designation,omitempty"`
	MentorID     *int       `gorm:"column:mentor_id" json:"mentor_id,omitempty"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role       Role        `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	School     *School     `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Mentor     *User       `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Role names seeded by the migration scripts. Capability grants hang off
// role_permissions, not these names; the names are only used for the
// mentor-routing branch and the admin override.
const (
	RoleAdmin         = "admin"
	RoleDRDHead       = "drd_head"
	RoleDRDMember     = "drd_member"
	RoleFaculty       = "faculty"
	RoleFacultyMentee = "faculty_mentee"
	RoleStudent       = "student"
)

// RolePermission grants one capability key to a role.
type RolePermission struct {
	RolePermissionID int        `gorm:"primaryKey;column:role_permission_id" json:"role_permission_id"`
	RoleID           int        `gorm:"column:role_id" json:"role_id"`
	Capability       string     `gorm:"column:capability" json:"capability"`
	CreateAt         *time.Time `gorm:"column:create_at" json:"create_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// NeedsMentorApproval reports whether submissions filed by this user route
// through the mentor approval stage before reaching the DRD queue.
func (u *User) NeedsMentorApproval() bool {
	if u == nil || u.MentorID == nil {
		return false
	}
	return u.Role.Role == RoleStudent || u.Role.Role == RoleFacultyMentee
}
