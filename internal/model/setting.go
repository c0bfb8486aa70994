package model

import "time"

// KeyDailyRate is the settings key holding the per-day parking rate.
const KeyDailyRate = "daily_rate"

// Setting is a single key/value pair of facility configuration.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:256;not null"`
	UpdatedAt time.Time
}
