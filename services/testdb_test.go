package services

import (
	"fmt"
	"testing"
	"time"

	"research-incentive-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Role IDs seeded by newTestDB.
const (
	testRoleAdmin    = 1
	testRoleDRDHead  = 2
	testRoleReviewer = 3
	testRoleFaculty  = 4
	testRoleStudent  = 5
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Role{},
		&models.RolePermission{},
		&models.User{},
		&models.School{},
		&models.Department{},
		&models.Submission{},
		&models.SubmissionAuthor{},
		&models.IndexingDetail{},
		&models.SubmissionStatusHistory{},
		&models.IncentivePolicy{},
		&models.IncentiveResult{},
		&models.IncentiveShare{},
		&models.ReviewerAssignment{},
		&models.Notification{},
		&models.AuditLog{},
		&models.UserSession{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	seedRoles(t, db)

	ClearPermissionCache()
	t.Cleanup(ClearPermissionCache)

	return db
}

func seedRoles(t *testing.T, db *gorm.DB) {
	t.Helper()

	roles := []models.Role{
		{RoleID: testRoleAdmin, Role: models.RoleAdmin},
		{RoleID: testRoleDRDHead, Role: models.RoleDRDHead},
		{RoleID: testRoleReviewer, Role: models.RoleDRDMember},
		{RoleID: testRoleFaculty, Role: models.RoleFaculty},
		{RoleID: testRoleStudent, Role: models.RoleStudent},
	}
	for i := range roles {
		if err := db.Create(&roles[i]).Error; err != nil {
			t.Fatalf("failed to seed role: %v", err)
		}
	}

	grants := map[int][]models.Capability{
		testRoleDRDHead: {
			models.CapIPRApprove, models.CapResearchApprove,
			models.CapIPRGovtFile, models.CapIPRFinalize,
			models.CapResearchFinalize,
		},
		testRoleReviewer: {models.CapIPRReview, models.CapResearchReview},
		testRoleFaculty:  {models.CapIPRSubmit, models.CapResearchSubmit},
		testRoleStudent:  {models.CapIPRSubmit, models.CapResearchSubmit},
	}
	for roleID, capabilities := range grants {
		for _, capability := range capabilities {
			grant := models.RolePermission{RoleID: roleID, Capability: string(capability)}
			if err := db.Create(&grant).Error; err != nil {
				t.Fatalf("failed to seed permission: %v", err)
			}
		}
	}
}

func seedUser(t *testing.T, db *gorm.DB, roleID int, schoolID int, mentorID *int) *models.User {
	t.Helper()

	user := models.User{
		UserFname: "Test",
		UserLname: fmt.Sprintf("User%d", time.Now().UnixNano()),
		Email:     fmt.Sprintf("user%d@example.edu", time.Now().UnixNano()),
		Password:  "not-a-real-hash",
		RoleID:    roleID,
		MentorID:  mentorID,
	}
	if schoolID != 0 {
		user.SchoolID = &schoolID
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return &user
}

func seedSchool(t *testing.T, db *gorm.DB) *models.School {
	t.Helper()

	school := models.School{SchoolName: "School of Engineering"}
	if err := db.Create(&school).Error; err != nil {
		t.Fatalf("failed to seed school: %v", err)
	}
	return &school
}

func seedAssignment(t *testing.T, db *gorm.DB, reviewerID, schoolID int, submissionType string) {
	t.Helper()

	assignment := models.ReviewerAssignment{
		ReviewerID:     reviewerID,
		SchoolID:       schoolID,
		SubmissionType: submissionType,
		AssignedBy:     1,
		CreateAt:       time.Now(),
	}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
}

func seedSubmission(t *testing.T, db *gorm.DB, userID, schoolID int, submissionType, status string) *models.Submission {
	t.Helper()

	now := time.Now()
	submission := models.Submission{
		SubmissionNumber: fmt.Sprintf("T-%d", time.Now().UnixNano()),
		SubmissionType:   submissionType,
		Title:            "Deep Learning for Crop Yield Prediction",
		Status:           status,
		UserID:           userID,
		SchoolID:         schoolID,
		Category:         models.ScopeJournalPaper,
		CreateAt:         now,
		UpdateAt:         now,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return &submission
}

func seedAuthors(t *testing.T, db *gorm.DB, submissionID int, roles ...string) {
	t.Helper()

	for i, role := range roles {
		author := models.SubmissionAuthor{
			SubmissionID: submissionID,
			AuthorRole:   role,
			Position:     i + 1,
			IsInternal:   true,
		}
		if err := db.Create(&author).Error; err != nil {
			t.Fatalf("failed to seed author: %v", err)
		}
	}
}

func seedIndexing(t *testing.T, db *gorm.DB, submissionID int, quartile string) {
	t.Helper()

	detail := models.IndexingDetail{
		SubmissionID: submissionID,
		Quartile:     quartile,
	}
	if err := db.Create(&detail).Error; err != nil {
		t.Fatalf("failed to seed indexing detail: %v", err)
	}
}

func seedPolicy(t *testing.T, db *gorm.DB, scope string, from time.Time, to *time.Time) *models.IncentivePolicy {
	t.Helper()

	now := time.Now()
	policy := models.IncentivePolicy{
		PolicyName:         "Journal paper incentive",
		Scope:              scope,
		IsActive:           true,
		EffectiveFrom:      from,
		EffectiveTo:        to,
		DistributionMethod: models.DistributionPositionBased,
		PositionShares:     models.PercentMap{"1": 40, "2": 30, "3": 15},
		RolePercentages:    models.PercentMap{},
		Bonuses: models.IndexingBonuses{
			QuartileBonuses: map[string]models.Bonus{
				"Q1": {Amount: 100000, Points: 10},
			},
		},
		CreatedBy: 1,
		CreateAt:  &now,
	}
	if err := db.Create(&policy).Error; err != nil {
		t.Fatalf("failed to seed policy: %v", err)
	}
	return &policy
}
