package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Behavior types map a persona to one row of the engagement calibration
// table. The set is closed; persona generation must not invent new values.
const (
	BehaviorLurker          = "lurker"
	BehaviorCasualEngager   = "casual_engager"
	BehaviorActiveCommenter = "active_commenter"
	BehaviorPowerSharer     = "power_sharer"
)

type Persona struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	User               *User                       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name               string                      `gorm:"column:name;not null" json:"name"`
	Title              string                      `gorm:"column:title" json:"title"`
	Company            string                      `gorm:"column:company" json:"company"`
	Industry           string                      `gorm:"column:industry" json:"industry"`
	AgeRange           string                      `gorm:"column:age_range" json:"age_range"`
	Bio                string                      `gorm:"column:bio" json:"bio"`
	Interests          datatypes.JSONSlice[string] `gorm:"column:interests;type:jsonb" json:"interests"`
	PainPoints         datatypes.JSONSlice[string] `gorm:"column:pain_points;type:jsonb" json:"pain_points"`
	ContentPreferences string                      `gorm:"column:content_preferences" json:"content_preferences"`
	BehaviorType       string                      `gorm:"column:behavior_type;not null;index" json:"behavior_type"`
	Platform           string                      `gorm:"column:platform;not null" json:"platform"`
	CreatedAt          time.Time                   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt              `gorm:"index" json:"deleted_at,omitempty"`
}

func (Persona) TableName() string { return "persona" }
