package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/praxisworks/accounts-backend/pkg/enums"
)

// UserRole is a single role assignment. The (user_id, role) pair is unique so
// a user can never hold the same role twice.
type UserRole struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_user_roles_user_role"`
	Role      enums.Role `gorm:"column:role;type:varchar(32);not null;uniqueIndex:uq_user_roles_user_role"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
