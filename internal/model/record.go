package model

import "time"

// RecordStatus is the lifecycle state of a parking record.
type RecordStatus string

const (
	StatusIn  RecordStatus = "IN"
	StatusOut RecordStatus = "OUT"
)

// ParkingRecord is one stay of a lorry at the facility.
type ParkingRecord struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	Token        int64        `gorm:"uniqueIndex;not null" json:"token"`
	Lorry        string       `gorm:"size:64;not null;index" json:"lorry"`
	Driver       string       `gorm:"size:128;not null" json:"driver"`
	Phone        string       `gorm:"size:32;not null" json:"phone"`
	Remarks      string       `gorm:"size:512;not null" json:"remarks"`
	EntryAt      time.Time    `gorm:"not null;index" json:"entryISO"`
	EntryDisplay string       `gorm:"size:64;not null" json:"entryDisplay"`
	ExitAt       *time.Time   `gorm:"index" json:"exitISO"`
	ExitDisplay  string       `gorm:"size:64;not null" json:"exitDisplay"`
	Days         *int64       `json:"days"`
	Amount       *float64     `json:"amount"`
	Status       RecordStatus `gorm:"size:8;not null;index" json:"status"`
	CreatedAt    time.Time    `gorm:"not null" json:"createdAt"`
}

// TableName pins the table name across dialects.
func (ParkingRecord) TableName() string {
	return "parking_records"
}
