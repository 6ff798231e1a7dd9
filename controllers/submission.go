// controllers/submission.go
package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"research-incentive-api/config"
	"research-incentive-api/models"
	"research-incentive-api/services"
	"research-incentive-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ===================== SUBMISSION MANAGEMENT =====================

func currentActor(c *gin.Context) services.Actor {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")
	return services.Actor{UserID: userID.(int), RoleID: roleID.(int)}
}

func isAdminRequest(c *gin.Context) bool {
	roleID, exists := c.Get("roleID")
	if !exists {
		return false
	}
	isAdmin, err := services.IsAdminRole(config.DB, roleID.(int))
	return err == nil && isAdmin
}

// GetSubmissions returns user's submissions
func GetSubmissions(c *gin.Context) {
	userID, _ := c.Get("userID")

	submissionType := c.Query("submission_type")
	status := c.Query("status")
	category := c.Query("category")

	var submissions []models.Submission
	query := config.DB.Preload("User").
		Preload("School").
		Preload("Authors").
		Where("delete_at IS NULL")

	// Filter by user if not admin
	if !isAdminRequest(c) {
		query = query.Where("user_id = ?", userID)
	}

	if submissionType != "" {
		query = query.Where("submission_type = ?", submissionType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Order("create_at DESC").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns a specific submission
func GetSubmission(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")

	var submission models.Submission
	query := config.DB.
		Preload("User").
		Preload("School").
		Preload("Mentor").
		Preload("Authors", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Authors.User").
		Preload("IndexingDetail").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("StatusHistory.Actor").
		Preload("IncentiveResult.Shares")

	// Reviewers see submissions routed through their queue; everyone else
	// only their own.
	if !isAdminRequest(c) && !canReview(c) {
		query = query.Where("user_id = ? OR mentor_id = ?", userID, userID)
	}

	if err := query.Where("submission_id = ? AND delete_at IS NULL", submissionID).First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": submission,
	})
}

func canReview(c *gin.Context) bool {
	roleID, exists := c.Get("roleID")
	if !exists {
		return false
	}
	for _, capability := range []models.Capability{
		models.CapIPRReview, models.CapResearchReview,
		models.CapIPRApprove, models.CapResearchApprove,
	} {
		allowed, err := services.HasCapability(config.DB, roleID.(int), capability)
		if err == nil && allowed {
			return true
		}
	}
	return false
}

// CreateSubmission creates a new draft submission
func CreateSubmission(c *gin.Context) {
	userID, _ := c.Get("userID")

	type CreateSubmissionRequest struct {
		SubmissionType string  `json:"submission_type" binding:"required"` // 'ipr', 'research_contribution'
		Title          string  `json:"title" binding:"required"`
		Category       string  `json:"category" binding:"required"`
		SchoolID       *int    `json:"school_id"`
		ReferenceDate  *string `json:"reference_date"` // YYYY-MM-DD
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SubmissionType != models.SubmissionTypeIPR && req.SubmissionType != models.SubmissionTypeResearch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission type"})
		return
	}

	req.Title = utils.SanitizeInput(req.Title)
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	var filer models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", userID).First(&filer).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	schoolID := 0
	if req.SchoolID != nil {
		schoolID = *req.SchoolID
	} else if filer.SchoolID != nil {
		schoolID = *filer.SchoolID
	}
	if schoolID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "School is required"})
		return
	}

	now := time.Now()
	submission := models.Submission{
		SubmissionType:   req.SubmissionType,
		SubmissionNumber: generateSubmissionNumber(req.SubmissionType),
		Title:            req.Title,
		Status:           models.StatusDraft,
		UserID:           userID.(int),
		SchoolID:         schoolID,
		DepartmentID:     filer.DepartmentID,
		Category:         req.Category,
		CreateAt:         now,
		UpdateAt:         now,
	}

	if req.ReferenceDate != nil && *req.ReferenceDate != "" {
		refDate, err := time.Parse("2006-01-02", *req.ReferenceDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reference_date, expected YYYY-MM-DD"})
			return
		}
		submission.ReferenceDate = &refDate
	}

	if err := config.DB.Create(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	config.DB.Preload("User").Preload("School").First(&submission, submission.SubmissionID)
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Submission created successfully",
		"submission": submission,
	})
}

// UpdateSubmission updates a submission (only while editable)
func UpdateSubmission(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")

	type UpdateSubmissionRequest struct {
		Title         *string `json:"title"`
		Category      *string `json:"category"`
		ReferenceDate *string `json:"reference_date"`
		DocumentPath  *string `json:"document_path"`
	}

	var req UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID)
	if !isAdminRequest(c) {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if !submission.IsEditable() {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission can no longer be edited"})
		return
	}

	updates := map[string]interface{}{"update_at": time.Now()}

	if req.Title != nil {
		title := utils.SanitizeInput(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		updates["title"] = title
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.ReferenceDate != nil {
		if *req.ReferenceDate == "" {
			updates["reference_date"] = nil
		} else {
			refDate, err := time.Parse("2006-01-02", *req.ReferenceDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reference_date, expected YYYY-MM-DD"})
				return
			}
			updates["reference_date"] = refDate
		}
	}
	if req.DocumentPath != nil {
		updates["document_path"] = *req.DocumentPath
	}

	if err := config.DB.Model(&submission).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission updated successfully",
	})
}

// DeleteSubmission soft deletes a submission. The workflow service rejects
// deletion of approved or completed submissions.
func DeleteSubmission(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	workflow := services.NewWorkflowService(config.DB, nil)
	deleteErr := workflow.Delete(services.TransitionRequest{
		SubmissionID: submissionID,
		Actor:        currentActor(c),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if deleteErr != nil {
		respondWorkflowError(c, deleteErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission deleted successfully",
	})
}

// ===================== AUTHOR LIST =====================

type authorPayload struct {
	UserID          *int    `json:"user_id"`
	ExternalName    *string `json:"external_name"`
	AuthorRole      string  `json:"author_role" binding:"required"`
	Position        int     `json:"position" binding:"required"`
	IsInternal      bool    `json:"is_internal"`
	IsInternational bool    `json:"is_international"`
	Designation     *string `json:"designation"`
}

// ReplaceAuthors replaces the submission's ordered author list.
func ReplaceAuthors(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")

	var req struct {
		Authors []authorPayload `json:"authors" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID)
	if !isAdminRequest(c) {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if !submission.IsEditable() {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission can no longer be edited"})
		return
	}

	authors := make([]models.SubmissionAuthor, 0, len(req.Authors))
	for _, p := range req.Authors {
		if p.UserID == nil && (p.ExternalName == nil || strings.TrimSpace(*p.ExternalName) == "") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Each author needs a user_id or an external_name"})
			return
		}
		authors = append(authors, models.SubmissionAuthor{
			SubmissionID:    submission.SubmissionID,
			UserID:          p.UserID,
			ExternalName:    p.ExternalName,
			AuthorRole:      p.AuthorRole,
			Position:        p.Position,
			IsInternal:      p.IsInternal,
			IsInternational: p.IsInternational,
			Designation:     p.Designation,
		})
	}

	if err := services.ValidateAuthorList(authors); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submission.SubmissionID).
			Delete(&models.SubmissionAuthor{}).Error; err != nil {
			return err
		}
		for i := range authors {
			if err := tx.Create(&authors[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Submission{}).
			Where("submission_id = ?", submission.SubmissionID).
			Update("update_at", time.Now()).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update author list"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Author list updated successfully",
		"authors": authors,
	})
}

// UpsertIndexingDetail creates or replaces the indexing metadata consumed
// by the incentive calculator.
func UpsertIndexingDetail(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")

	type IndexingRequest struct {
		Quartile         string   `json:"quartile"`
		SJRScore         *float64 `json:"sjr_score"`
		ImpactFactor     *float64 `json:"impact_factor"`
		NAASRating       string   `json:"naas_rating"`
		IndexingCategory string   `json:"indexing_category"`
		ConferenceSub    string   `json:"conference_sub_type"`
		IsInternational  bool     `json:"is_international"`
		BestPaperAward   bool     `json:"best_paper_award"`
	}

	var req IndexingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID)
	if !isAdminRequest(c) {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if !submission.IsEditable() {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission can no longer be edited"})
		return
	}

	detail := models.IndexingDetail{
		SubmissionID:     submission.SubmissionID,
		Quartile:         req.Quartile,
		SJRScore:         req.SJRScore,
		ImpactFactor:     req.ImpactFactor,
		NAASRating:       req.NAASRating,
		IndexingCategory: req.IndexingCategory,
		ConferenceSub:    req.ConferenceSub,
		IsInternational:  req.IsInternational,
		BestPaperAward:   req.BestPaperAward,
	}

	var existing models.IndexingDetail
	err := config.DB.Where("submission_id = ?", submission.SubmissionID).First(&existing).Error
	if err == nil {
		detail.DetailID = existing.DetailID
		err = config.DB.Save(&detail).Error
	} else {
		err = config.DB.Create(&detail).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save indexing details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Indexing details saved successfully",
		"indexing_detail": detail,
	})
}

// GetSubmissionHistory returns the append-only review trail.
func GetSubmissionHistory(c *gin.Context) {
	submissionID := c.Param("id")
	userID, _ := c.Get("userID")

	var submission models.Submission
	query := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID)
	if !isAdminRequest(c) && !canReview(c) {
		query = query.Where("user_id = ? OR mentor_id = ?", userID, userID)
	}
	if err := query.First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	var history []models.SubmissionStatusHistory
	if err := config.DB.Preload("Actor").
		Where("submission_id = ?", submission.SubmissionID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": history,
		"total":   len(history),
	})
}

// Global mutex for submission number generation
var submissionNumberMutex sync.Mutex

// generateSubmissionNumber creates a unique submission number
// (prefix-YYYY-RUNNING). The running number resets when the year changes.
func generateSubmissionNumber(submissionType string) string {
	submissionNumberMutex.Lock()
	defer submissionNumberMutex.Unlock()

	year := time.Now().Format("2006")

	var prefix string
	switch submissionType {
	case models.SubmissionTypeIPR:
		prefix = "IPR"
	case models.SubmissionTypeResearch:
		prefix = "RC"
	default:
		prefix = "SUB"
	}

	prefixYearLike := fmt.Sprintf("%s-%s%%", prefix, year)

	var count int64
	config.DB.Model(&models.Submission{}).
		Where("submission_type = ? AND submission_number LIKE ?", submissionType, prefixYearLike).
		Count(&count)

	for i := int64(1); i <= 10; i++ {
		potentialNumber := fmt.Sprintf("%s-%s-%04d", prefix, year, count+i)

		var existing int64
		config.DB.Model(&models.Submission{}).
			Where("submission_number = ?", potentialNumber).
			Count(&existing)

		if existing == 0 {
			return potentialNumber
		}
	}

	// Concurrent collision fallback
	bytes := make([]byte, 3)
	rand.Read(bytes)
	randomSuffix := strings.ToUpper(hex.EncodeToString(bytes))
	return fmt.Sprintf("%s-%s-R-%s", prefix, year, randomSuffix)
}
