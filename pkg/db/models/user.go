package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// User represents the canonical identity entity. Credential issuance lives in a
// separate identity service; this backend only reads users to join names and
// emails into admin views.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string         `gorm:"column:name;type:text;not null"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone     *string        `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:member"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
