package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataset is one ingested file together with its precomputed aggregates.
// Aggregates are written once, in the ingestion transaction, and never updated.
type Dataset struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Seq            int64     `gorm:"uniqueIndex;not null"` // Monotonic ingestion counter, breaks timestamp ties.
	Filename       string    `gorm:"size:255;not null"`
	UploadedAt     time.Time `gorm:"index;not null"`
	TotalRecords   int       `gorm:"not null"`
	AvgFlowrate    float64   `gorm:"not null"`
	AvgPressure    float64   `gorm:"not null"`
	AvgTemperature float64   `gorm:"not null"`

	// Associations
	Records []EquipmentRecord `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a random UUID when the caller did not set one.
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
