package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Plan struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	Project            *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	TotalEstimatedCost float64        `gorm:"column:total_estimated_cost;not null;default:0" json:"total_estimated_cost"`
	Phases             []*PlanPhase   `gorm:"foreignKey:PlanID;references:ID" json:"phases,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Plan) TableName() string { return "plan" }

// PlanPhase rows are replaced as a set when a plan is written. PhaseID is
// the stable external identifier used for routing and task back-references;
// it survives reorders and edits, unlike the surrogate ID of a given row.
type PlanPhase struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PlanID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"plan_id"`
	Plan              *Plan          `gorm:"constraint:OnDelete:CASCADE;foreignKey:PlanID;references:ID" json:"plan,omitempty"`
	PhaseID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"phase_id"`
	OrderIndex        int            `gorm:"column:order_index;not null" json:"order_index"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	EstimatedDuration int            `gorm:"column:estimated_duration;not null;default:0" json:"estimated_duration"`
	EstimatedCost     float64        `gorm:"column:estimated_cost;not null;default:0" json:"estimated_cost"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlanPhase) TableName() string { return "plan_phase" }
