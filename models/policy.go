package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Distribution methods.
const (
	DistributionPositionBased = "author_position_based"
	DistributionRoleBased     = "author_role_based"
)

// Policy scope keys. A scope identifies the submission category a policy
// prices: publication type for papers, IPR type for filings, conference
// sub-type for conference papers.
const (
	ScopeJournalPaper       = "journal_paper"
	ScopeConferencePaper    = "conference_paper"
	ScopeBookChapter        = "book_chapter"
	ScopePatent             = "patent"
	ScopeCopyright          = "copyright"
	ScopeTrademark          = "trademark"
	ScopeIndustrialDesign   = "industrial_design"
	ScopeConferenceIntl     = "conference_international"
	ScopeConferenceNatl     = "conference_national"
	ScopeSponsoredProject   = "sponsored_project"
	ScopeConsultancyProject = "consultancy_project"
)

// Bonus is one flat amount/points pair inside the indexing bonus tables.
type Bonus struct {
	Amount float64 `json:"amount"`
	Points float64 `json:"points"`
}

// SJRRange is one tier of the ordered SJR bonus list. Bounds are inclusive;
// the first matching range wins.
type SJRRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Amount float64 `json:"amount"`
	Points float64 `json:"points"`
}

// PercentMap maps a position bucket ("1".."5", "6+") or an author role to a
// percentage of the pool. Stored as a JSON column.
type PercentMap map[string]float64

func (m PercentMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *PercentMap) Scan(value interface{}) error {
	return scanJSONColumn(value, m)
}

// IndexingBonuses holds every bonus table a policy defines. Bonuses are
// additive across tables; within one table a single tier applies.
type IndexingBonuses struct {
	CategoryBonuses map[string]Bonus `json:"category_bonuses,omitempty"`
	QuartileBonuses map[string]Bonus `json:"quartile_bonuses,omitempty"`
	SJRRanges       []SJRRange       `json:"sjr_ranges,omitempty"`
	RatingBonuses   map[string]Bonus `json:"rating_bonuses,omitempty"`
}

func (b IndexingBonuses) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *IndexingBonuses) Scan(value interface{}) error {
	return scanJSONColumn(value, b)
}

func scanJSONColumn(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch data := value.(type) {
	case []byte:
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, dest)
	case string:
		if data == "" {
			return nil
		}
		return json.Unmarshal([]byte(data), dest)
	default:
		return fmt.Errorf("unsupported column type %T for JSON scan", value)
	}
}

// IncentivePolicy is one versioned pricing policy for a scope. At most one
// active policy may cover any reference date within a scope; the policy
// service enforces non-overlap at write time.
type IncentivePolicy struct {
	PolicyID           int             `gorm:"primaryKey;column:policy_id" json:"policy_id"`
	PolicyName         string          `gorm:"column:policy_name" json:"policy_name"`
	Scope              string          `gorm:"column:scope" json:"scope"`
	IsActive           bool            `gorm:"column:is_active" json:"is_active"`
	EffectiveFrom      time.Time       `gorm:"column:effective_from" json:"effective_from"`
	EffectiveTo        *time.Time      `gorm:"column:effective_to" json:"effective_to,omitempty"`
	DistributionMethod string          `gorm:"column:distribution_method" json:"distribution_method"`
	PositionShares     PercentMap      `gorm:"column:position_distribution;type:json" json:"position_distribution"`
	RolePercentages    PercentMap      `gorm:"column:role_percentages;type:json" json:"role_percentages"`
	Bonuses            IndexingBonuses `gorm:"column:indexing_bonuses;type:json" json:"indexing_bonuses"`
	CreatedBy          int             `gorm:"column:created_by" json:"created_by"`
	CreateAt           *time.Time      `gorm:"column:create_at" json:"create_at"`
	UpdateAt           *time.Time      `gorm:"column:update_at" json:"update_at"`
	DeleteAt           *time.Time      `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (IncentivePolicy) TableName() string {
	return "incentive_policies"
}

// Covers reports whether the reference date falls inside the policy's
// effective window. Both boundaries are inclusive.
func (p *IncentivePolicy) Covers(d time.Time) bool {
	if d.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo != nil && d.After(*p.EffectiveTo) {
		return false
	}
	return true
}

// OverlapsWindow reports whether the policy's effective window intersects
// [from, to]. A nil "to" means open-ended.
func (p *IncentivePolicy) OverlapsWindow(from time.Time, to *time.Time) bool {
	if p.EffectiveTo != nil && from.After(*p.EffectiveTo) {
		return false
	}
	if to != nil && p.EffectiveFrom.After(*to) {
		return false
	}
	return true
}
