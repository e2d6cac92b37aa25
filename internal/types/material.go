package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialCatalogEntry struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Project            *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Title              string         `gorm:"column:title;not null" json:"title"`
	ReferenceCode      string         `gorm:"column:reference_code" json:"reference_code"`
	Brand              string         `gorm:"column:brand" json:"brand"`
	Supplier           string         `gorm:"column:supplier" json:"supplier"`
	Description        string         `gorm:"column:description" json:"description"`
	UnitOfMeasure      UnitOfMeasure  `gorm:"column:unit_of_measure;not null;default:'un'" json:"unit_of_measure"`
	EstimatedUnitPrice float64        `gorm:"column:estimated_unit_price;not null;default:0" json:"estimated_unit_price"`
	ProfitMargin       *float64       `gorm:"column:profit_margin" json:"profit_margin,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MaterialCatalogEntry) TableName() string { return "material_catalog_entry" }

// MaterialCostForTask is a snapshot taken at assignment time; it is
// re-snapshotted against the current catalog price only when the quantity
// is explicitly updated, never on catalog price changes alone.
type MaterialAssignment struct {
	ID                          uuid.UUID             `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID                      uuid.UUID             `gorm:"type:uuid;not null;index" json:"task_id"`
	Task                        *Task                 `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	MaterialID                  uuid.UUID             `gorm:"type:uuid;not null;index" json:"material_id"`
	Material                    *MaterialCatalogEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:MaterialID;references:ID" json:"material,omitempty"`
	QuantityUsed                float64               `gorm:"column:quantity_used;not null" json:"quantity_used"`
	MaterialCostForTask         float64               `gorm:"column:material_cost_for_task;not null;default:0" json:"material_cost_for_task"`
	ProfitMarginForTaskMaterial *float64              `gorm:"column:profit_margin_for_task_material" json:"profit_margin_for_task_material,omitempty"`
	PurchasedValueForTask       *float64              `gorm:"column:purchased_value_for_task" json:"purchased_value_for_task,omitempty"`
	CreatedAt                   time.Time             `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                   time.Time             `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                   gorm.DeletedAt        `gorm:"index" json:"deleted_at,omitempty"`
}

func (MaterialAssignment) TableName() string { return "material_assignment" }
