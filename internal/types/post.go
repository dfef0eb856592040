package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariationNumber 0 means the post was carried over from a previous round
// ("original"); N >= 1 is the Nth freshly generated variation of the batch.
type Post struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform        string         `gorm:"column:platform;not null" json:"platform"`
	Content         string         `gorm:"column:content;not null" json:"content"`
	VariationNumber int            `gorm:"column:variation_number;not null;default:0" json:"variation_number"`
	Status          string         `gorm:"column:status;not null;default:'draft';index" json:"status"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Post) TableName() string { return "post" }
