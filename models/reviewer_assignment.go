package models

import "time"

// ReviewerAssignment maps a DRD reviewer to a school for one submission
// kind. Assignments are scoped per kind: an IPR assignment does not grant
// review rights over research contributions from the same school.
type ReviewerAssignment struct {
	AssignmentID   int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	ReviewerID     int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	SchoolID       int        `gorm:"column:school_id" json:"school_id"`
	SubmissionType string     `gorm:"column:submission_type" json:"submission_type"`
	AssignedBy     int        `gorm:"column:assigned_by" json:"assigned_by"`
	CreateAt       time.Time  `gorm:"column:create_at" json:"create_at"`
	DeleteAt       *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	Reviewer *User   `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	School   *School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
}

func (ReviewerAssignment) TableName() string {
	return "reviewer_assignments"
}
