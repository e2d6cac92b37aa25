package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectType string

const (
	ProjectTypeResidential    ProjectType = "residential"
	ProjectTypeCommercial     ProjectType = "commercial"
	ProjectTypeIndustrial     ProjectType = "industrial"
	ProjectTypeRenovation     ProjectType = "renovation"
	ProjectTypeInfrastructure ProjectType = "infrastructure"
)

func ValidProjectType(t ProjectType) bool {
	switch t {
	case ProjectTypeResidential, ProjectTypeCommercial, ProjectTypeIndustrial, ProjectTypeRenovation, ProjectTypeInfrastructure:
		return true
	}
	return false
}

type Project struct {
	ID                     uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name                   string         `gorm:"column:name;not null" json:"name"`
	Type                   ProjectType    `gorm:"column:type;not null" json:"type"`
	Description            string         `gorm:"column:description" json:"description"`
	Location               string         `gorm:"column:location" json:"location"`
	TotalBudget            float64        `gorm:"column:total_budget;not null;default:0" json:"total_budget"`
	Currency               string         `gorm:"column:currency;not null;default:'COP'" json:"currency"`
	FunctionalRequirements string         `gorm:"column:functional_requirements" json:"functional_requirements"`
	AestheticRequirements  string         `gorm:"column:aesthetic_requirements" json:"aesthetic_requirements"`
	PlanID                 *uuid.UUID     `gorm:"type:uuid;index" json:"plan_id,omitempty"`
	TotalEstimatedCost     float64        `gorm:"column:total_estimated_cost;not null;default:0" json:"total_estimated_cost"`
	Metadata               datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt              time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }
