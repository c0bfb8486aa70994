package store

import (
	"time"

	"github.com/shopspring/decimal"

	"lorry-parking-backend/internal/model"
)

const (
	// DeleteAllConfirmation must be supplied verbatim to wipe all records.
	DeleteAllConfirmation = "DELETE_ALL"

	DefaultPageSize      = 200
	RecentJobsLimit      = 100
	maxTokenAttempts     = 5
	defaultRateTTL       = time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// NewRecord is a validated check-in.
type NewRecord struct {
	Lorry   string
	Driver  string
	Phone   string
	Remarks string
	EntryAt *time.Time // nil means now
}

// CloseRequest is a validated check-out.
type CloseRequest struct {
	ExitAt *time.Time       // nil means now
	Rate   *decimal.Decimal // nil means the current daily rate
}

// RecordFilter selects a page of records.
type RecordFilter struct {
	Status   model.RecordStatus // empty for all
	Search   string
	Page     int // 1-indexed
	PageSize int
}

// ImportRow is one row of a bulk import. Row is its 1-based position in the
// caller's batch and is echoed back in errors.
type ImportRow struct {
	Row     int
	Lorry   string
	Driver  string
	Phone   string
	Remarks string
	Token   int64 // 0 means allocate
	EntryAt *time.Time
	ExitAt  *time.Time
}

// RowError describes why one import row was skipped.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Added  int
	Errors []RowError
}

// Stats are the dashboard counters.
type Stats struct {
	Parked       int64   `json:"parked"`
	TodayEntries int64   `json:"today_entries"`
	TodayExits   int64   `json:"today_exits"`
	TodayRevenue float64 `json:"today_revenue"`
	Total        int64   `json:"total"`
	Exited       int64   `json:"exited"`
	TotalRevenue float64 `json:"total_revenue"`
}
