package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. A row is created either by
// the provisioning flow on a subject's first verified login or by an
// administrative import; ProviderUID is the stable join key to the external
// identity provider and never changes after creation.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderUID string     `gorm:"column:provider_uid;type:varchar(255);not null;uniqueIndex"`
	Email       string     `gorm:"type:varchar(254);not null;uniqueIndex"`
	FirstName   string     `gorm:"column:first_name;not null;default:''"`
	LastName    string     `gorm:"column:last_name;not null;default:''"`
	Phone       *string    `gorm:"column:phone"`
	Roles       []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
