package model

import (
	"time"

	"gorm.io/datatypes"
)

// PrintJobStatus is the delivery state of a print job.
type PrintJobStatus string

const (
	JobPending PrintJobStatus = "pending"
	JobDone    PrintJobStatus = "done"
	JobFailed  PrintJobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s PrintJobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// PrintJob is a receipt waiting to be fetched by the printing workstation.
// Payload is stored as received.
type PrintJob struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	Payload   datatypes.JSON `gorm:"not null" json:"data"`
	Status    PrintJobStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	AckAt     *time.Time     `json:"ack_at"`
}

// PrintJobSummary is the operator-facing projection of a job.
type PrintJobSummary struct {
	ID        int64          `json:"id"`
	Status    PrintJobStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	AckAt     *time.Time     `json:"ack_at"`
	Token     any            `json:"token"`
	Lorry     any            `json:"lorry"`
	Type      any            `json:"type"`
}
