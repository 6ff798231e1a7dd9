// controllers/workflow.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"research-incentive-api/config"
	"research-incentive-api/services"

	"github.com/gin-gonic/gin"
)

// respondWorkflowError maps workflow service errors onto HTTP statuses.
// Races and terminal-state rejections surface as 409, authorization as
// 403, bad author data as 400; they are never collapsed into one status.
func respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is in a terminal status"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrResultExists):
		c.JSON(http.StatusConflict, gin.H{"error": "An incentive result is already attached"})
	case errors.Is(err, services.ErrInvalidAuthorList):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process transition"})
	}
}

func applyTransition(c *gin.Context, action string) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req struct {
		Comments string `json:"comments"`
	}
	_ = c.ShouldBindJSON(&req)

	workflow := services.NewWorkflowService(config.DB, services.NewNotificationService(config.DB))
	submission, err := workflow.Transition(services.TransitionRequest{
		SubmissionID: submissionID,
		Action:       action,
		Comments:     req.Comments,
		Actor:        currentActor(c),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Transition applied successfully",
		"submission": submission,
	})
}

// SubmitSubmission moves a draft into the review pipeline, routing through
// mentor approval when the filer requires it.
func SubmitSubmission(c *gin.Context) { applyTransition(c, services.ActionSubmit) }

// MentorDecision resolves a pending mentor approval: "approve" forwards
// the submission into the review queue, "reject" returns it to draft.
func MentorDecision(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req struct {
		Decision string `json:"decision" binding:"required"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var action string
	switch req.Decision {
	case "approve":
		action = services.ActionMentorApprove
	case "reject":
		action = services.ActionMentorReject
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Decision must be 'approve' or 'reject'"})
		return
	}

	workflow := services.NewWorkflowService(config.DB, services.NewNotificationService(config.DB))
	submission, err := workflow.Transition(services.TransitionRequest{
		SubmissionID: submissionID,
		Action:       action,
		Comments:     req.Comments,
		Actor:        currentActor(c),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Mentor decision recorded",
		"submission": submission,
	})
}

// StartReview claims a submitted entry for review.
func StartReview(c *gin.Context) { applyTransition(c, services.ActionStartReview) }

// Recommend forwards a reviewed submission to the department head.
func Recommend(c *gin.Context) { applyTransition(c, services.ActionRecommend) }

// RequestChanges sends a submission back to the filer for revision.
func RequestChanges(c *gin.Context) { applyTransition(c, services.ActionRequestChanges) }

// Resubmit returns a revised submission to the review queue.
func Resubmit(c *gin.Context) { applyTransition(c, services.ActionResubmit) }

// ResumeReview picks a resubmitted entry back up for review.
func ResumeReview(c *gin.Context) { applyTransition(c, services.ActionResumeReview) }

// DRDReject rejects a submission during review.
func DRDReject(c *gin.Context) { applyTransition(c, services.ActionDRDReject) }

// HeadApprove approves a recommended submission and attaches its incentive
// result in the same transaction.
func HeadApprove(c *gin.Context) { applyTransition(c, services.ActionHeadApprove) }

// HeadReject rejects a recommended submission.
func HeadReject(c *gin.Context) { applyTransition(c, services.ActionHeadReject) }

// FileGovt forwards an approved IPR filing for government submission.
func FileGovt(c *gin.Context) { applyTransition(c, services.ActionFileGovt) }

// GovtFiled records that the government application has been filed.
func GovtFiled(c *gin.Context) { applyTransition(c, services.ActionGovtFiled) }

// Publish marks a filed IPR as published.
func Publish(c *gin.Context) { applyTransition(c, services.ActionPublish) }

// Complete closes out the workflow.
func Complete(c *gin.Context) { applyTransition(c, services.ActionComplete) }

// ClearIncentive detaches the incentive result and rewinds the submission
// for re-review.
func ClearIncentive(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req struct {
		Comments string `json:"comments"`
	}
	_ = c.ShouldBindJSON(&req)

	workflow := services.NewWorkflowService(config.DB, services.NewNotificationService(config.DB))
	submission, err := workflow.ClearIncentive(services.TransitionRequest{
		SubmissionID: submissionID,
		Comments:     req.Comments,
		Actor:        currentActor(c),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Incentive result cleared",
		"submission": submission,
	})
}
