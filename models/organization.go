package models

import "time"

// School represents one school/faculty of the university.
type School struct {
	SchoolID   int        `gorm:"primaryKey;column:school_id" json:"school_id"`
	SchoolName string     `gorm:"column:school_name" json:"school_name"`
	Code       string     `gorm:"column:code" json:"code"`
	IsActive   bool       `gorm:"column:is_active" json:"is_active"`
	CreateAt   *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt   *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt   *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Department belongs to a school.
type Department struct {
	DepartmentID   int        `gorm:"primaryKey;column:department_id" json:"department_id"`
	DepartmentName string     `gorm:"column:department_name" json:"department_name"`
	SchoolID       int        `gorm:"column:school_id" json:"school_id"`
	CreateAt       *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt       *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt       *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	School School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
}

func (School) TableName() string {
	return "schools"
}

func (Department) TableName() string {
	return "departments"
}
