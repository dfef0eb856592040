package types

import (
	"time"

	"github.com/google/uuid"
)

// SimulationResult is the outcome of judging one (persona, post) pair.
// Rows are immutable once written; the unique index enforces at-most-once
// simulation per pair across reruns and regeneration flows.
type SimulationResult struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PersonaID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_sim_result_pair" json:"persona_id"`
	Persona         *Persona  `gorm:"constraint:OnDelete:CASCADE;foreignKey:PersonaID;references:ID" json:"persona,omitempty"`
	PostID          uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_sim_result_pair" json:"post_id"`
	Post            *Post     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PostID;references:ID" json:"post,omitempty"`
	Liked           bool      `gorm:"column:liked;not null" json:"liked"`
	Shared          bool      `gorm:"column:shared;not null" json:"shared"`
	Commented       bool      `gorm:"column:commented;not null" json:"commented"`
	CommentText     *string   `gorm:"column:comment_text" json:"comment_text,omitempty"`
	Reasoning       string    `gorm:"column:reasoning;not null" json:"reasoning"`
	EngagementScore int       `gorm:"column:engagement_score;not null;default:0" json:"engagement_score"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SimulationResult) TableName() string { return "simulation_result" }
