package models

import "time"

// IncentiveResult is the persisted output of one incentive calculation.
// There is at most one per submission; it is written together with the
// approval transition and never overwritten in place. Re-review deletes it
// through the explicit clear path before recomputation.
type IncentiveResult struct {
	ResultID      int       `gorm:"primaryKey;column:result_id" json:"result_id"`
	SubmissionID  int       `gorm:"column:submission_id;unique" json:"submission_id"`
	PolicyID      *int      `gorm:"column:policy_id" json:"policy_id,omitempty"`
	TotalAmount   int64     `gorm:"column:total_amount" json:"total_amount"`
	TotalPoints   float64   `gorm:"column:total_points" json:"total_points"`
	PolicyMissing bool      `gorm:"column:policy_missing" json:"policy_missing"`
	NoBonusMatch  bool      `gorm:"column:no_bonus_match" json:"no_bonus_match"`
	CalculatedBy  int       `gorm:"column:calculated_by" json:"calculated_by"`
	CalculatedAt  time.Time `gorm:"column:calculated_at" json:"calculated_at"`

	Policy *IncentivePolicy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
	Shares []IncentiveShare `gorm:"foreignKey:ResultID" json:"shares,omitempty"`
}

// IncentiveShare is one author's slice of the result.
type IncentiveShare struct {
	ShareID      int     `gorm:"primaryKey;column:share_id" json:"share_id"`
	ResultID     int     `gorm:"column:result_id" json:"result_id"`
	SubmissionID int     `gorm:"column:submission_id" json:"submission_id"`
	AuthorID     int     `gorm:"column:author_id" json:"author_id"`
	Position     int     `gorm:"column:position" json:"position"`
	AmountShare  int64   `gorm:"column:amount_share" json:"amount_share"`
	PointsShare  float64 `gorm:"column:points_share" json:"points_share"`
}

func (IncentiveResult) TableName() string {
	return "incentive_results"
}

func (IncentiveShare) TableName() string {
	return "incentive_shares"
}
