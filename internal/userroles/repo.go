package userroles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/praxisworks/accounts-backend/pkg/db/models"
	"github.com/praxisworks/accounts-backend/pkg/enums"
)

// Repository exposes role-assignment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a user-roles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListRoles returns all role assignments for the user, oldest first.
func (r *Repository) ListRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	var rows []models.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Grant inserts the assignment if it does not already exist. The insert
// is a no-op when the (user_id, role) pair is already present, so a
// repeat grant never fails. Returns true when a new row was created.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	row := models.UserRole{
		ID:     uuid.New(),
		UserID: userID,
		Role:   role,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
		DoNothing: true,
	}).Create(&row)
	return result.RowsAffected > 0, result.Error
}

// Revoke deletes the assignment. Returns the number of rows removed so
// callers can distinguish a revoke from a no-op.
func (r *Repository) Revoke(ctx context.Context, userID uuid.UUID, role enums.Role) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{})
	return result.RowsAffected, result.Error
}

// HasAny reports whether the user holds at least one role.
func (r *Repository) HasAny(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}
