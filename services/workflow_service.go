package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"research-incentive-api/models"

	"gorm.io/gorm"
)

// Actor identifies who is driving a transition.
type Actor struct {
	UserID int
	RoleID int
}

// TransitionRequest carries one workflow action against one submission.
type TransitionRequest struct {
	SubmissionID int
	Action       string
	Comments     string
	Actor        Actor
	IPAddress    string
	UserAgent    string
}

// Notifier receives transition events after commit. Delivery is
// fire-and-forget; failures never roll back the transition.
type Notifier interface {
	NotifyTransition(submission *models.Submission, action, oldStatus string, actorID int)
}

// WorkflowService owns the submission state machine: status transitions,
// per-transition permission checks, the append-only review trail, and the
// incentive calculation at the approval transition.
type WorkflowService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewWorkflowService(db *gorm.DB, notifier Notifier) *WorkflowService {
	return &WorkflowService{db: db, notifier: notifier}
}

// Transition applies one named action. The status change, history entry,
// audit record and (on approval) the incentive result commit together or
// not at all: a calculator failure fails the transition closed.
func (s *WorkflowService) Transition(req TransitionRequest) (*models.Submission, error) {
	var oldStatus string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		submission, err := loadSubmission(tx, req.SubmissionID)
		if err != nil {
			return err
		}

		if submission.IsTerminal() {
			return ErrAlreadyTerminal
		}

		def, ok := transitionsFor(submission.SubmissionType)[req.Action]
		if !ok {
			return fmt.Errorf("%w: action %q is not defined for %s submissions",
				ErrInvalidStateTransition, req.Action, submission.SubmissionType)
		}
		if submission.Status != def.From {
			return fmt.Errorf("%w: %s is not permitted from status %s",
				ErrInvalidStateTransition, req.Action, submission.Status)
		}

		if err := s.authorize(submission, def, req.Actor); err != nil {
			return err
		}

		now := time.Now()
		target := def.To
		updates := map[string]interface{}{
			"status":    target,
			"update_at": now,
		}

		if def.MentorRouting {
			if submission.User != nil && submission.User.NeedsMentorApproval() {
				target = models.StatusPendingMentorApproval
				updates["status"] = target
				updates["mentor_id"] = *submission.User.MentorID
			}
			updates["submitted_at"] = now
		}

		// Optimistic concurrency: the update is conditioned on the status
		// the actor saw. Zero rows means another reviewer moved the
		// submission first.
		result := tx.Model(&models.Submission{}).
			Where("submission_id = ? AND status = ? AND delete_at IS NULL",
				submission.SubmissionID, def.From).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update submission status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: submission was modified concurrently", ErrInvalidStateTransition)
		}

		var historyNote *string
		if def.TriggersIncentive {
			note, err := s.attachIncentive(tx, submission, req.Actor, now)
			if err != nil {
				return err
			}
			historyNote = note
		}

		if err := appendHistory(tx, submission.SubmissionID, submission.Status, target,
			req.Actor.UserID, req.Comments, historyNote, now); err != nil {
			return err
		}

		if err := writeAudit(tx, req, submission, target, now); err != nil {
			return err
		}

		oldStatus = submission.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reload(req.SubmissionID)
	if err != nil {
		return nil, err
	}

	s.notify(updated, req.Action, oldStatus, req.Actor.UserID)
	return updated, nil
}

func (s *WorkflowService) authorize(submission *models.Submission, def transitionDef, actor Actor) error {
	isAdmin, err := IsAdminRole(s.db, actor.RoleID)
	if err != nil {
		return err
	}

	if def.ByFiler && actor.UserID != submission.UserID && !isAdmin {
		return fmt.Errorf("%w: only the filer may perform this action", ErrPermissionDenied)
	}

	if def.ByMentor {
		if isAdmin {
			return nil
		}
		if submission.MentorID == nil || actor.UserID != *submission.MentorID {
			return fmt.Errorf("%w: only the assigned mentor may decide", ErrPermissionDenied)
		}
		return nil
	}

	if def.Capability != "" {
		allowed, err := HasCapability(s.db, actor.RoleID, def.Capability)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: missing capability %s", ErrPermissionDenied, def.Capability)
		}
	}

	if def.NeedsAssignment && !isAdmin {
		assigned, err := HasSchoolAssignment(s.db, actor.UserID, submission.SchoolID, submission.SubmissionType)
		if err != nil {
			return err
		}
		if !assigned {
			return fmt.Errorf("%w: no reviewer assignment for this school", ErrPermissionDenied)
		}
	}

	return nil
}

// attachIncentive runs the calculator inside the approval transaction and
// persists its output. A missing policy degrades to a zero result flagged
// policy_missing; every other failure aborts the transition.
func (s *WorkflowService) attachIncentive(tx *gorm.DB, submission *models.Submission, actor Actor, now time.Time) (*string, error) {
	var existing int64
	if err := tx.Model(&models.IncentiveResult{}).
		Where("submission_id = ?", submission.SubmissionID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing incentive result: %w", err)
	}
	if existing > 0 {
		return nil, ErrResultExists
	}

	var authors []models.SubmissionAuthor
	if err := tx.Where("submission_id = ?", submission.SubmissionID).
		Order("position ASC").
		Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}

	var indexing models.IndexingDetail
	if err := tx.Where("submission_id = ?", submission.SubmissionID).
		First(&indexing).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load indexing detail: %w", err)
	}

	refDate := submission.PolicyReferenceDate()
	policy, err := ResolveActivePolicy(tx, submission.Category, refDate)
	if err != nil {
		if !errors.Is(err, ErrNoApplicablePolicy) {
			return nil, err
		}
		// Approval is not blocked on missing policy data, but the gap is
		// recorded instead of silently substituting a default table.
		log.Printf("Warning: no active %s policy covers %s for submission %s; recording zero incentive",
			submission.Category, refDate.Format("2006-01-02"), submission.SubmissionNumber)

		zero := &models.IncentiveResult{
			SubmissionID:  submission.SubmissionID,
			PolicyMissing: true,
			CalculatedBy:  actor.UserID,
			CalculatedAt:  now,
		}
		if err := tx.Create(zero).Error; err != nil {
			return nil, fmt.Errorf("failed to save incentive result: %w", err)
		}
		if err := updateIncentiveSummary(tx, submission.SubmissionID,
			models.IncentiveStatusPolicyMissing, 0, 0, now); err != nil {
			return nil, err
		}
		note := fmt.Sprintf("no active policy for scope %s on %s; zero incentive recorded",
			submission.Category, refDate.Format("2006-01-02"))
		return &note, nil
	}

	outcome, err := ComputeIncentive(authors, &indexing, policy)
	if err != nil {
		return nil, err
	}

	record := &models.IncentiveResult{
		SubmissionID: submission.SubmissionID,
		PolicyID:     &policy.PolicyID,
		TotalAmount:  outcome.TotalAmount,
		TotalPoints:  outcome.TotalPoints,
		NoBonusMatch: outcome.NoBonusMatch,
		CalculatedBy: actor.UserID,
		CalculatedAt: now,
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save incentive result: %w", err)
	}

	for _, share := range outcome.Shares {
		row := models.IncentiveShare{
			ResultID:     record.ResultID,
			SubmissionID: submission.SubmissionID,
			AuthorID:     share.AuthorID,
			Position:     share.Position,
			AmountShare:  share.Amount,
			PointsShare:  share.Points,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to save incentive share: %w", err)
		}
	}

	if err := updateIncentiveSummary(tx, submission.SubmissionID,
		models.IncentiveStatusCalculated, outcome.TotalAmount, outcome.TotalPoints, now); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("incentive calculated under policy %d: amount=%d points=%.2f",
		policy.PolicyID, outcome.TotalAmount, outcome.TotalPoints)
	if outcome.NoBonusMatch {
		note = fmt.Sprintf("no bonus bucket matched indexing metadata under policy %d; zero incentive recorded",
			policy.PolicyID)
		log.Printf("Warning: submission %s matched no bonus bucket under policy %d",
			submission.SubmissionNumber, policy.PolicyID)
	}
	return &note, nil
}

// ClearIncentive removes an attached incentive result so the approval can
// be re-reviewed. The submission is rewound to recommended_to_head and the
// clear is recorded in the review trail.
func (s *WorkflowService) ClearIncentive(req TransitionRequest) (*models.Submission, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		submission, err := loadSubmission(tx, req.SubmissionID)
		if err != nil {
			return err
		}

		approved := approvedStatusFor(submission.SubmissionType)
		if submission.Status != approved {
			return fmt.Errorf("%w: incentive can only be cleared from status %s",
				ErrInvalidStateTransition, approved)
		}

		capability := models.CapIPRApprove
		if submission.SubmissionType == models.SubmissionTypeResearch {
			capability = models.CapResearchApprove
		}
		allowed, err := HasCapability(s.db, req.Actor.RoleID, capability)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: missing capability %s", ErrPermissionDenied, capability)
		}

		if !submission.HasIncentiveResult() {
			return fmt.Errorf("%w: no incentive result to clear", ErrInvalidStateTransition)
		}

		now := time.Now()
		result := tx.Model(&models.Submission{}).
			Where("submission_id = ? AND status = ?", submission.SubmissionID, approved).
			Updates(map[string]interface{}{
				"status":           models.StatusRecommendedToHead,
				"incentive_status": "",
				"incentive_amount": 0,
				"incentive_points": 0,
				"calculated_at":    nil,
				"update_at":        now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to clear incentive: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: submission was modified concurrently", ErrInvalidStateTransition)
		}

		if err := tx.Where("submission_id = ?", submission.SubmissionID).
			Delete(&models.IncentiveShare{}).Error; err != nil {
			return fmt.Errorf("failed to delete incentive shares: %w", err)
		}
		if err := tx.Where("submission_id = ?", submission.SubmissionID).
			Delete(&models.IncentiveResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete incentive result: %w", err)
		}

		note := "incentive result cleared for re-review"
		if err := appendHistory(tx, submission.SubmissionID, submission.Status,
			models.StatusRecommendedToHead, req.Actor.UserID, req.Comments, &note, now); err != nil {
			return err
		}

		return writeAudit(tx, TransitionRequest{
			SubmissionID: req.SubmissionID,
			Action:       "clear_incentive",
			Actor:        req.Actor,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
		}, submission, models.StatusRecommendedToHead, now)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(req.SubmissionID)
}

// Delete soft-deletes a submission. Only pre-terminal submissions without
// an attached incentive result can be removed, and only by holders of the
// submission_delete capability.
func (s *WorkflowService) Delete(req TransitionRequest) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		submission, err := loadSubmission(tx, req.SubmissionID)
		if err != nil {
			return err
		}

		allowed, err := HasCapability(s.db, req.Actor.RoleID, models.CapSubmissionDelete)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: missing capability %s", ErrPermissionDenied, models.CapSubmissionDelete)
		}

		if submission.IsTerminal() || submission.HasIncentiveResult() {
			return fmt.Errorf("%w: approved or completed submissions cannot be deleted",
				ErrInvalidStateTransition)
		}

		now := time.Now()
		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", submission.SubmissionID).
			Updates(map[string]interface{}{"delete_at": now, "update_at": now}).Error; err != nil {
			return fmt.Errorf("failed to delete submission: %w", err)
		}

		return writeAudit(tx, TransitionRequest{
			SubmissionID: req.SubmissionID,
			Action:       "delete",
			Actor:        req.Actor,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
		}, submission, submission.Status, now)
	})
}

func loadSubmission(tx *gorm.DB, submissionID int) (*models.Submission, error) {
	var submission models.Submission
	err := tx.Preload("User.Role").
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return &submission, nil
}

func updateIncentiveSummary(tx *gorm.DB, submissionID int, status string, amount int64, points float64, now time.Time) error {
	err := tx.Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{
			"incentive_status": status,
			"incentive_amount": amount,
			"incentive_points": points,
			"calculated_at":    now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update incentive summary: %w", err)
	}
	return nil
}

func appendHistory(tx *gorm.DB, submissionID int, oldStatus, newStatus string, actorID int, comments string, notes *string, now time.Time) error {
	entry := models.SubmissionStatusHistory{
		SubmissionID: submissionID,
		OldStatus:    &oldStatus,
		NewStatus:    newStatus,
		ChangedBy:    actorID,
		Notes:        notes,
		CreatedAt:    now,
	}
	if comments != "" {
		entry.Comments = &comments
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to log status history: %w", err)
	}
	return nil
}

func writeAudit(tx *gorm.DB, req TransitionRequest, submission *models.Submission, newStatus string, now time.Time) error {
	values := map[string]interface{}{
		"action":     req.Action,
		"old_status": submission.Status,
		"new_status": newStatus,
	}
	if req.Comments != "" {
		values["comments"] = req.Comments
	}
	serialized, _ := json.Marshal(values)

	entityID := submission.SubmissionID
	payload := string(serialized)
	audit := models.AuditLog{
		UserID:     req.Actor.UserID,
		Action:     req.Action,
		EntityType: "submission",
		EntityID:   &entityID,
		NewValues:  &payload,
		IPAddress:  req.IPAddress,
		CreatedAt:  now,
	}
	if submission.SubmissionNumber != "" {
		number := submission.SubmissionNumber
		audit.EntityNumber = &number
	}
	if req.UserAgent != "" {
		agent := req.UserAgent
		audit.UserAgent = &agent
	}
	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *WorkflowService) reload(submissionID int) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.Preload("User").
		Preload("Authors").
		Preload("IndexingDetail").
		Preload("IncentiveResult.Shares").
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to reload submission: %w", err)
	}
	return &submission, nil
}

func (s *WorkflowService) notify(submission *models.Submission, action, oldStatus string, actorID int) {
	if s.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: notification dispatch panicked: %v", r)
			}
		}()
		s.notifier.NotifyTransition(submission, action, oldStatus, actorID)
	}()
}
