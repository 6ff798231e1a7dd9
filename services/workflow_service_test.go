package services

import (
	"testing"
	"time"

	"research-incentive-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func transitionReq(submissionID int, action string, actor *models.User) TransitionRequest {
	return TransitionRequest{
		SubmissionID: submissionID,
		Action:       action,
		Actor:        Actor{UserID: actor.UserID, RoleID: actor.RoleID},
		IPAddress:    "127.0.0.1",
	}
}

func historyCount(t *testing.T, db *gorm.DB, submissionID int) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.SubmissionStatusHistory{}).
		Where("submission_id = ?", submissionID).
		Count(&count).Error)
	return count
}

func TestWorkflowFullApprovalChain(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	reviewer := seedUser(t, db, testRoleReviewer, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)
	seedAssignment(t, db, reviewer.UserID, school.SchoolID, models.SubmissionTypeIPR)
	seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDraft)
	seedAuthors(t, db, submission.SubmissionID,
		models.AuthorRoleFirst, models.AuthorRoleCorresponding, models.AuthorRoleCo)
	seedIndexing(t, db, submission.SubmissionID, "Q1")

	workflow := NewWorkflowService(db, nil)

	steps := []struct {
		action string
		actor  *models.User
		status string
	}{
		{ActionSubmit, filer, models.StatusSubmitted},
		{ActionStartReview, reviewer, models.StatusUnderDRDReview},
		{ActionRecommend, reviewer, models.StatusRecommendedToHead},
		{ActionHeadApprove, head, models.StatusDRDHeadApproved},
		{ActionFileGovt, head, models.StatusSubmittedToGovt},
		{ActionGovtFiled, head, models.StatusGovtApplicationFiled},
		{ActionPublish, head, models.StatusPublished},
		{ActionComplete, head, models.StatusCompleted},
	}

	for _, step := range steps {
		updated, err := workflow.Transition(transitionReq(submission.SubmissionID, step.action, step.actor))
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.status, updated.Status, "action %s", step.action)
	}

	assert.Equal(t, int64(len(steps)), historyCount(t, db, submission.SubmissionID))

	// The approval attached the incentive result: positions 1-3 of the Q1
	// pool at 40/30/15 percent, unallocated buckets forfeited.
	var result models.IncentiveResult
	require.NoError(t, db.Preload("Shares").
		Where("submission_id = ?", submission.SubmissionID).
		First(&result).Error)
	assert.Equal(t, int64(85000), result.TotalAmount)
	assert.False(t, result.PolicyMissing)
	assert.Len(t, result.Shares, 3)

	var final models.Submission
	require.NoError(t, db.First(&final, submission.SubmissionID).Error)
	assert.Equal(t, models.IncentiveStatusCalculated, final.IncentiveStatus)
	assert.Equal(t, int64(85000), final.IncentiveAmount)
	assert.True(t, final.IsTerminal())

	// Terminal: nothing moves a completed submission.
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionSubmit, filer))
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestWorkflowIllegalTransitionLeavesStateUntouched(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusSubmitted)

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	var unchanged models.Submission
	require.NoError(t, db.First(&unchanged, submission.SubmissionID).Error)
	assert.Equal(t, models.StatusSubmitted, unchanged.Status)
	assert.Equal(t, int64(0), historyCount(t, db, submission.SubmissionID))
}

func TestWorkflowReviewRequiresSchoolAssignment(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	otherSchool := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	reviewer := seedUser(t, db, testRoleReviewer, otherSchool.SchoolID, nil)

	// Assigned to the other school only, and only for research.
	seedAssignment(t, db, reviewer.UserID, otherSchool.SchoolID, models.SubmissionTypeIPR)
	seedAssignment(t, db, reviewer.UserID, school.SchoolID, models.SubmissionTypeResearch)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusSubmitted)

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionStartReview, reviewer))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// A denied attempt leaves no trace in the review trail.
	assert.Equal(t, int64(0), historyCount(t, db, submission.SubmissionID))

	var unchanged models.Submission
	require.NoError(t, db.First(&unchanged, submission.SubmissionID).Error)
	assert.Equal(t, models.StatusSubmitted, unchanged.Status)
}

func TestWorkflowMentorRouting(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	mentor := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	student := seedUser(t, db, testRoleStudent, school.SchoolID, &mentor.UserID)
	outsider := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)

	submission := seedSubmission(t, db, student.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDraft)

	workflow := NewWorkflowService(db, nil)

	updated, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionSubmit, student))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingMentorApproval, updated.Status)
	require.NotNil(t, updated.MentorID)
	assert.Equal(t, mentor.UserID, *updated.MentorID)

	// Only the assigned mentor may decide.
	_, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionMentorApprove, outsider))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionMentorApprove, mentor))
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
}

func TestWorkflowMentorRejectReturnsToDraft(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	mentor := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	student := seedUser(t, db, testRoleStudent, school.SchoolID, &mentor.UserID)

	submission := seedSubmission(t, db, student.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDraft)

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionSubmit, student))
	require.NoError(t, err)

	req := transitionReq(submission.SubmissionID, ActionMentorReject, mentor)
	req.Comments = "Methodology section needs work"
	updated, err := workflow.Transition(req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, updated.Status)

	var last models.SubmissionStatusHistory
	require.NoError(t, db.Where("submission_id = ?", submission.SubmissionID).
		Order("history_id DESC").First(&last).Error)
	require.NotNil(t, last.Comments)
	assert.Equal(t, "Methodology section needs work", *last.Comments)
}

func TestWorkflowChangesRequestedLoop(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	reviewer := seedUser(t, db, testRoleReviewer, school.SchoolID, nil)
	seedAssignment(t, db, reviewer.UserID, school.SchoolID, models.SubmissionTypeResearch)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeResearch, models.StatusUnderDRDReview)

	workflow := NewWorkflowService(db, nil)

	updated, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionRequestChanges, reviewer))
	require.NoError(t, err)
	assert.Equal(t, models.StatusChangesRequired, updated.Status)

	updated, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionResubmit, filer))
	require.NoError(t, err)
	assert.Equal(t, models.StatusResubmitted, updated.Status)

	updated, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionResumeReview, reviewer))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderDRDReview, updated.Status)
}

func TestWorkflowApprovalWithoutPolicyRecordsZeroResult(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeResearch, models.StatusRecommendedToHead)
	seedAuthors(t, db, submission.SubmissionID, models.AuthorRoleFirst)

	workflow := NewWorkflowService(db, nil)
	updated, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	require.NoError(t, err)

	// Research approvals land on the approved status, not the IPR chain.
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, models.IncentiveStatusPolicyMissing, updated.IncentiveStatus)
	assert.Equal(t, int64(0), updated.IncentiveAmount)

	var result models.IncentiveResult
	require.NoError(t, db.Where("submission_id = ?", submission.SubmissionID).First(&result).Error)
	assert.True(t, result.PolicyMissing)
	assert.Nil(t, result.PolicyID)

	// The gap is visible in the review trail.
	var last models.SubmissionStatusHistory
	require.NoError(t, db.Where("submission_id = ?", submission.SubmissionID).
		Order("history_id DESC").First(&last).Error)
	require.NotNil(t, last.Notes)
	assert.Contains(t, *last.Notes, "no active policy")
}

func TestWorkflowApprovalFailsClosedOnBadAuthorList(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)
	seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), nil)

	// No authors at all: the calculator rejects and the approval must not
	// go through half-way.
	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusRecommendedToHead)
	seedIndexing(t, db, submission.SubmissionID, "Q1")

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	assert.ErrorIs(t, err, ErrInvalidAuthorList)

	var unchanged models.Submission
	require.NoError(t, db.First(&unchanged, submission.SubmissionID).Error)
	assert.Equal(t, models.StatusRecommendedToHead, unchanged.Status)
	assert.Equal(t, int64(0), historyCount(t, db, submission.SubmissionID))

	var results int64
	db.Model(&models.IncentiveResult{}).
		Where("submission_id = ?", submission.SubmissionID).
		Count(&results)
	assert.Equal(t, int64(0), results)
}

func TestWorkflowClearIncentiveAndRecompute(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)
	seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusRecommendedToHead)
	seedAuthors(t, db, submission.SubmissionID, models.AuthorRoleFirst, models.AuthorRoleCo)
	seedIndexing(t, db, submission.SubmissionID, "Q1")

	workflow := NewWorkflowService(db, nil)
	updated, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	require.NoError(t, err)
	assert.Equal(t, int64(70000), updated.IncentiveAmount) // 40% + 30%

	// A second approval cannot stack a second result.
	_, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// Clearing rewinds and deletes the result and its shares.
	cleared, err := workflow.ClearIncentive(transitionReq(submission.SubmissionID, "", head))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecommendedToHead, cleared.Status)
	assert.Equal(t, "", cleared.IncentiveStatus)
	assert.Equal(t, int64(0), cleared.IncentiveAmount)

	var leftover int64
	db.Model(&models.IncentiveShare{}).
		Where("submission_id = ?", submission.SubmissionID).
		Count(&leftover)
	assert.Equal(t, int64(0), leftover)

	// Re-approval recomputes the same deterministic number.
	updated, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionHeadApprove, head))
	require.NoError(t, err)
	assert.Equal(t, int64(70000), updated.IncentiveAmount)
}

func TestWorkflowClearIncentiveOnlyFromApprovedState(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	head := seedUser(t, db, testRoleDRDHead, school.SchoolID, nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusUnderDRDReview)

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.ClearIncentive(transitionReq(submission.SubmissionID, "", head))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestWorkflowDeleteRules(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)
	admin := seedUser(t, db, testRoleAdmin, school.SchoolID, nil)

	draft := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDraft)

	workflow := NewWorkflowService(db, nil)

	// Filers hold no delete capability.
	err := workflow.Delete(transitionReq(draft.SubmissionID, "", filer))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Admin may delete a pre-approval submission.
	require.NoError(t, workflow.Delete(transitionReq(draft.SubmissionID, "", admin)))

	var gone models.Submission
	err = db.Where("submission_id = ? AND delete_at IS NULL", draft.SubmissionID).First(&gone).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Approved submissions are immutable even for admins.
	approved := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDRDHeadApproved)
	db.Model(approved).Update("incentive_status", models.IncentiveStatusCalculated)

	err = workflow.Delete(transitionReq(approved.SubmissionID, "", admin))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestWorkflowUnknownSubmissionAndActions(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)

	workflow := NewWorkflowService(db, nil)

	_, err := workflow.Transition(transitionReq(99999, ActionSubmit, filer))
	assert.ErrorIs(t, err, ErrNotFound)

	// The government chain does not exist for research contributions.
	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeResearch, models.StatusApproved)
	_, err = workflow.Transition(transitionReq(submission.SubmissionID, ActionFileGovt, filer))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestWorkflowAuditTrailWritten(t *testing.T) {
	db := newTestDB(t)
	school := seedSchool(t, db)
	filer := seedUser(t, db, testRoleFaculty, school.SchoolID, nil)

	submission := seedSubmission(t, db, filer.UserID, school.SchoolID,
		models.SubmissionTypeIPR, models.StatusDraft)

	workflow := NewWorkflowService(db, nil)
	_, err := workflow.Transition(transitionReq(submission.SubmissionID, ActionSubmit, filer))
	require.NoError(t, err)

	var audit models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "submission", submission.SubmissionID).
		First(&audit).Error)
	assert.Equal(t, ActionSubmit, audit.Action)
	assert.Equal(t, filer.UserID, audit.UserID)
	require.NotNil(t, audit.NewValues)
	assert.Contains(t, *audit.NewValues, models.StatusSubmitted)
}
