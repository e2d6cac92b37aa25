package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Status is a free-form label: any status may move to any other.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type UnitOfMeasure string

const (
	UnitUnidad UnitOfMeasure = "un"
	UnitMetro  UnitOfMeasure = "m"
	UnitM2     UnitOfMeasure = "m2"
	UnitM3     UnitOfMeasure = "m3"
	UnitKg     UnitOfMeasure = "kg"
	UnitGalon  UnitOfMeasure = "gal"
	UnitBulto  UnitOfMeasure = "bulto"
	UnitViaje  UnitOfMeasure = "viaje"
	UnitDia    UnitOfMeasure = "dia"
	UnitGlobal UnitOfMeasure = "global"
)

func ValidUnitOfMeasure(u UnitOfMeasure) bool {
	switch u {
	case UnitUnidad, UnitMetro, UnitM2, UnitM3, UnitKg, UnitGalon, UnitBulto, UnitViaje, UnitDia, UnitGlobal:
		return true
	}
	return false
}

// Task references its phase by the stable PhaseID, not by the plan_phase
// surrogate row id, so phase reorders never orphan tasks.
type Task struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Project             *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	PhaseID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"phase_id"`
	Title               string         `gorm:"column:title;not null" json:"title"`
	Description         string         `gorm:"column:description" json:"description"`
	Quantity            float64        `gorm:"column:quantity;not null;default:1" json:"quantity"`
	UnitOfMeasure       UnitOfMeasure  `gorm:"column:unit_of_measure;not null;default:'un'" json:"unit_of_measure"`
	UnitPrice           float64        `gorm:"column:unit_price;not null;default:0" json:"unit_price"`
	LaborCost           *float64       `gorm:"column:labor_cost" json:"labor_cost,omitempty"`
	EstimatedCost       float64        `gorm:"column:estimated_cost;not null;default:0" json:"estimated_cost"`
	EstimatedDuration   *int           `gorm:"column:estimated_duration" json:"estimated_duration,omitempty"`
	Status              TaskStatus     `gorm:"column:status;not null;default:'pending'" json:"status"`
	ProfitMargin        *float64       `gorm:"column:profit_margin" json:"profit_margin,omitempty"`
	ExecutionPercentage *float64       `gorm:"column:execution_percentage" json:"execution_percentage,omitempty"`
	StartDate           *time.Time     `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate             *time.Time     `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Task) TableName() string { return "task" }
