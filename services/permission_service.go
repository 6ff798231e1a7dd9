package services

import (
	"fmt"
	"sync"
	"time"

	"research-incentive-api/models"

	"gorm.io/gorm"
)

var (
	permCacheMu sync.RWMutex
	permCache   *permCacheEntry
	permTTL     = 5 * time.Minute
)

type permCacheEntry struct {
	byRole     map[int]map[models.Capability]bool
	adminRoles map[int]bool
	fetchedAt  time.Time
}

func loadPermissions(db *gorm.DB, force bool) (*permCacheEntry, error) {
	permCacheMu.RLock()
	cached := permCache
	permCacheMu.RUnlock()

	if cached != nil && !force && time.Since(cached.fetchedAt) < permTTL {
		return cached, nil
	}

	permCacheMu.Lock()
	defer permCacheMu.Unlock()

	if permCache != nil && !force && time.Since(permCache.fetchedAt) < permTTL {
		return permCache, nil
	}

	var grants []models.RolePermission
	if err := db.Where("delete_at IS NULL").Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}

	byRole := make(map[int]map[models.Capability]bool)
	for _, grant := range grants {
		if !models.IsKnownCapability(grant.Capability) {
			// Unknown keys in the table are ignored rather than granted.
			continue
		}
		if byRole[grant.RoleID] == nil {
			byRole[grant.RoleID] = make(map[models.Capability]bool)
		}
		byRole[grant.RoleID][models.Capability(grant.Capability)] = true
	}

	var roles []models.Role
	if err := db.Where("delete_at IS NULL").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	adminRoles := make(map[int]bool, 1)
	for _, role := range roles {
		if role.Role == models.RoleAdmin {
			adminRoles[role.RoleID] = true
		}
	}

	entry := &permCacheEntry{
		byRole:     byRole,
		adminRoles: adminRoles,
		fetchedAt:  time.Now(),
	}
	permCache = entry
	return entry, nil
}

// ClearPermissionCache invalidates the in-memory permission cache.
func ClearPermissionCache() {
	permCacheMu.Lock()
	defer permCacheMu.Unlock()
	permCache = nil
}

// HasCapability reports whether the role holds the capability. Admin roles
// hold every capability.
func HasCapability(db *gorm.DB, roleID int, capability models.Capability) (bool, error) {
	entry, err := loadPermissions(db, false)
	if err != nil {
		return false, err
	}
	if entry.adminRoles[roleID] {
		return true, nil
	}
	if entry.byRole[roleID][capability] {
		return true, nil
	}

	// Force refresh once so freshly granted capabilities take effect
	// without waiting out the TTL.
	entry, err = loadPermissions(db, true)
	if err != nil {
		return false, err
	}
	return entry.adminRoles[roleID] || entry.byRole[roleID][capability], nil
}

// IsAdminRole reports whether the role is the admin role.
func IsAdminRole(db *gorm.DB, roleID int) (bool, error) {
	entry, err := loadPermissions(db, false)
	if err != nil {
		return false, err
	}
	return entry.adminRoles[roleID], nil
}

// HasSchoolAssignment reports whether the reviewer is assigned to review
// submissions of the given kind from the given school.
func HasSchoolAssignment(db *gorm.DB, reviewerID, schoolID int, submissionType string) (bool, error) {
	var count int64
	err := db.Model(&models.ReviewerAssignment{}).
		Where("reviewer_id = ? AND school_id = ? AND submission_type = ? AND delete_at IS NULL",
			reviewerID, schoolID, submissionType).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reviewer assignment: %w", err)
	}
	return count > 0, nil
}
