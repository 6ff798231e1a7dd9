// controllers/assignment.go
package controllers

import (
	"net/http"
	"time"

	"research-incentive-api/config"
	"research-incentive-api/models"

	"github.com/gin-gonic/gin"
)

// GetAssignments lists reviewer-to-school assignments.
func GetAssignments(c *gin.Context) {
	var assignments []models.ReviewerAssignment

	query := config.DB.Preload("Reviewer").Preload("School").
		Where("delete_at IS NULL")

	if reviewerID := c.Query("reviewer_id"); reviewerID != "" {
		query = query.Where("reviewer_id = ?", reviewerID)
	}
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}
	if submissionType := c.Query("submission_type"); submissionType != "" {
		query = query.Where("submission_type = ?", submissionType)
	}

	if err := query.Order("create_at DESC").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// CreateAssignment assigns a reviewer to a school for one submission kind.
func CreateAssignment(c *gin.Context) {
	type AssignmentRequest struct {
		ReviewerID     int    `json:"reviewer_id" binding:"required"`
		SchoolID       int    `json:"school_id" binding:"required"`
		SubmissionType string `json:"submission_type" binding:"required"`
	}

	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SubmissionType != models.SubmissionTypeIPR && req.SubmissionType != models.SubmissionTypeResearch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission type"})
		return
	}

	var reviewer models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", req.ReviewerID).First(&reviewer).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reviewer not found"})
		return
	}
	var school models.School
	if err := config.DB.Where("school_id = ? AND delete_at IS NULL", req.SchoolID).First(&school).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "School not found"})
		return
	}

	var existing int64
	config.DB.Model(&models.ReviewerAssignment{}).
		Where("reviewer_id = ? AND school_id = ? AND submission_type = ? AND delete_at IS NULL",
			req.ReviewerID, req.SchoolID, req.SubmissionType).
		Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment already exists"})
		return
	}

	userID, _ := c.Get("userID")
	assignment := models.ReviewerAssignment{
		ReviewerID:     req.ReviewerID,
		SchoolID:       req.SchoolID,
		SubmissionType: req.SubmissionType,
		AssignedBy:     userID.(int),
		CreateAt:       time.Now(),
	}

	if err := config.DB.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Assignment created successfully",
		"assignment": assignment,
	})
}

// DeleteAssignment soft deletes a reviewer assignment.
func DeleteAssignment(c *gin.Context) {
	id := c.Param("id")

	var assignment models.ReviewerAssignment
	if err := config.DB.Where("assignment_id = ? AND delete_at IS NULL", id).First(&assignment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	now := time.Now()
	assignment.DeleteAt = &now

	if err := config.DB.Save(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete assignment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Assignment deleted successfully",
	})
}
