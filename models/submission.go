package models

import "time"

// Submission kinds. IPR filings and research contributions share the same
// table and workflow machinery; only the transition table differs.
const (
	SubmissionTypeIPR      = "ipr"
	SubmissionTypeResearch = "research_contribution"
)

// Submission statuses. Stored as plain strings; the legal-transition sets
// live in the workflow service.
const (
	StatusDraft                 = "draft"
	StatusPendingMentorApproval = "pending_mentor_approval"
	StatusSubmitted             = "submitted"
	StatusUnderDRDReview        = "under_drd_review"
	StatusRecommendedToHead     = "recommended_to_head"
	StatusDRDHeadApproved       = "drd_head_approved"
	StatusSubmittedToGovt       = "submitted_to_govt"
	StatusGovtApplicationFiled  = "govt_application_filed"
	StatusPublished             = "published"
	StatusCompleted             = "completed"
	StatusChangesRequired       = "changes_required"
	StatusResubmitted           = "resubmitted"
	StatusDRDRejected           = "drd_rejected"
	StatusRejected              = "rejected"
	StatusApproved              = "approved" // research variant approval stage
)

// Incentive status values carried on the submission row.
const (
	IncentiveStatusCalculated    = "calculated"
	IncentiveStatusPolicyMissing = "policy_missing"
)

// Author roles.
const (
	AuthorRoleFirst         = "first_author"
	AuthorRoleCorresponding = "corresponding_author"
	AuthorRoleCo            = "co_author"
	AuthorRoleSenior        = "senior_author"
)

type Submission struct {
	SubmissionID     int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string     `gorm:"column:submission_number;unique" json:"submission_number"`
	SubmissionType   string     `gorm:"column:submission_type" json:"submission_type"`
	Title            string     `gorm:"column:title" json:"title"`
	Status           string     `gorm:"column:status" json:"status"`
	UserID           int        `gorm:"column:user_id" json:"user_id"`
	SchoolID         int        `gorm:"column:school_id" json:"school_id"`
	DepartmentID     *int       `gorm:"column:department_id" json:"department_id,omitempty"`
	MentorID         *int       `gorm:"column:mentor_id" json:"mentor_id,omitempty"`
	Category         string     `gorm:"column:category" json:"category"`
	ReferenceDate    *time.Time `gorm:"column:reference_date" json:"reference_date,omitempty"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	DocumentPath     *string    `gorm:"column:document_path" json:"document_path,omitempty"`

	// Incentive summary, written once by the approval transition.
	IncentiveStatus string     `gorm:"column:incentive_status" json:"incentive_status"`
	IncentiveAmount int64      `gorm:"column:incentive_amount" json:"incentive_amount"`
	IncentivePoints float64    `gorm:"column:incentive_points" json:"incentive_points"`
	CalculatedAt    *time.Time `gorm:"column:calculated_at" json:"calculated_at,omitempty"`

	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	User            *User                     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	School          *School                   `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Mentor          *User                     `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	Authors         []SubmissionAuthor        `gorm:"foreignKey:SubmissionID" json:"authors,omitempty"`
	IndexingDetail  *IndexingDetail           `gorm:"foreignKey:SubmissionID" json:"indexing_detail,omitempty"`
	StatusHistory   []SubmissionStatusHistory `gorm:"foreignKey:SubmissionID" json:"status_history,omitempty"`
	IncentiveResult *IncentiveResult          `gorm:"foreignKey:SubmissionID" json:"incentive_result,omitempty"`
}

// SubmissionAuthor is one entry of the ordered author list. Position is
// 1-based and significant for position-based distribution.
type SubmissionAuthor struct {
	AuthorID        int     `gorm:"primaryKey;column:author_id" json:"author_id"`
	SubmissionID    int     `gorm:"column:submission_id" json:"submission_id"`
	UserID          *int    `gorm:"column:user_id" json:"user_id,omitempty"`
	ExternalName    *string `gorm:"column:external_name" json:"external_name,omitempty"`
	AuthorRole      string  `gorm:"column:author_role" json:"author_role"`
	Position        int     `gorm:"column:position" json:"position"`
	IsInternal      bool    `gorm:"column:is_internal" json:"is_internal"`
	IsInternational bool    `gorm:"column:is_international" json:"is_international"`
	Designation     *string `gorm:"column:designation" json:"designation,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IndexingDetail carries the publication-type dependent metadata consumed
// only by the incentive calculator; the workflow treats it as opaque.
type IndexingDetail struct {
	DetailID         int      `gorm:"primaryKey;column:detail_id" json:"detail_id"`
	SubmissionID     int      `gorm:"column:submission_id;unique" json:"submission_id"`
	Quartile         string   `gorm:"column:quartile" json:"quartile"`
	SJRScore         *float64 `gorm:"column:sjr_score" json:"sjr_score,omitempty"`
	ImpactFactor     *float64 `gorm:"column:impact_factor" json:"impact_factor,omitempty"`
	NAASRating       string   `gorm:"column:naas_rating" json:"naas_rating"`
	IndexingCategory string   `gorm:"column:indexing_category" json:"indexing_category"`
	ConferenceSub    string   `gorm:"column:conference_sub_type" json:"conference_sub_type"`
	IsInternational  bool     `gorm:"column:is_international" json:"is_international"`
	BestPaperAward   bool     `gorm:"column:best_paper_award" json:"best_paper_award"`
}

// SubmissionStatusHistory is the append-only review trail. Rows are never
// updated or deleted.
type SubmissionStatusHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	OldStatus    *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus    string    `gorm:"column:new_status" json:"new_status"`
	ChangedBy    int       `gorm:"column:changed_by" json:"changed_by"`
	Comments     *string   `gorm:"column:comments" json:"comments"`
	Notes        *string   `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`

	Actor *User `gorm:"foreignKey:ChangedBy" json:"actor,omitempty"`
}

// TableName overrides
func (Submission) TableName() string {
	return "submissions"
}

func (SubmissionAuthor) TableName() string {
	return "submission_authors"
}

func (IndexingDetail) TableName() string {
	return "submission_indexing_details"
}

func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}

// PolicyReferenceDate returns the date used to pick the applicable
// incentive policy: the publication/reference date when present, the
// submission date otherwise.
func (s *Submission) PolicyReferenceDate() time.Time {
	if s.ReferenceDate != nil {
		return *s.ReferenceDate
	}
	if s.SubmittedAt != nil {
		return *s.SubmittedAt
	}
	return s.CreateAt
}

// IsTerminal reports whether no further actor-driven transition is defined
// from the current status.
func (s *Submission) IsTerminal() bool {
	switch s.Status {
	case StatusCompleted, StatusRejected, StatusDRDRejected:
		return true
	}
	return false
}

// IsEditable reports whether the filer may still mutate the submission.
func (s *Submission) IsEditable() bool {
	return s.Status == StatusDraft || s.Status == StatusChangesRequired
}

// HasIncentiveResult reports whether an incentive result has been attached.
func (s *Submission) HasIncentiveResult() bool {
	return s.IncentiveStatus != ""
}
