package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/praxisworks/accounts-backend/pkg/db/models"
	"github.com/praxisworks/accounts-backend/pkg/enums"
)

// UserDTO is the transport shape returned by the API.
type UserDTO struct {
	ID          uuid.UUID    `json:"id"`
	ProviderUID string       `json:"provider_uid"`
	Email       string       `json:"email"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Phone       *string      `json:"phone,omitempty"`
	Roles       []enums.Role `json:"roles"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	ProviderUID string
	Email       string
	FirstName   string
	LastName    string
	Phone       *string
}

// UpdateUserInput captures the mutable profile fields. Nil pointers leave
// the existing value untouched.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	roles := make([]enums.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Role)
	}

	return &UserDTO{
		ID:          u.ID,
		ProviderUID: u.ProviderUID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:          uuid.New(),
		ProviderUID: c.ProviderUID,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Phone:       c.Phone,
	}
}
