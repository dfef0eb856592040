package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BrandProfile is produced by the upstream website analysis pipeline. It is
// read-only input for persona generation and the simulation prompts.
type BrandProfile struct {
	ID             uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User           *User                       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	BrandName      string                      `gorm:"column:brand_name;not null" json:"brand_name"`
	WebsiteURL     string                      `gorm:"column:website_url" json:"website_url"`
	Industry       string                      `gorm:"column:industry" json:"industry"`
	Tone           string                      `gorm:"column:tone" json:"tone"`
	Description    string                      `gorm:"column:description" json:"description"`
	TargetAudience string                      `gorm:"column:target_audience" json:"target_audience"`
	Keywords       datatypes.JSONSlice[string] `gorm:"column:keywords;type:jsonb" json:"keywords"`
	CreatedAt      time.Time                   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"deleted_at,omitempty"`
}

func (BrandProfile) TableName() string { return "brand_profile" }
