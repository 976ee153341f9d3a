package model

// EquipmentRecord is one normalized telemetry row owned by a Dataset.
// The auto-increment ID doubles as the insertion order within a dataset.
type EquipmentRecord struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	DatasetID     string `gorm:"size:36;index;not null"`
	EquipmentName string `gorm:"not null"`
	EquipmentType string `gorm:"not null"`
	Flowrate      float64
	Pressure      float64
	Temperature   float64
}

// EquipmentKind returns the equipment type used for grouping.
func (r EquipmentRecord) EquipmentKind() string { return r.EquipmentType }

// Measurements returns the three numeric readings of the record.
func (r EquipmentRecord) Measurements() (flowrate, pressure, temperature float64) {
	return r.Flowrate, r.Pressure, r.Temperature
}
