package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/model"
)

// RecordStore owns parking records and their IN -> OUT transition.
type RecordStore interface {
	CreateRecord(ctx context.Context, in NewRecord) (model.ParkingRecord, error)
	GetRecord(ctx context.Context, id int64) (model.ParkingRecord, error)
	ListRecords(ctx context.Context, f RecordFilter) ([]model.ParkingRecord, int64, error)
	CloseRecord(ctx context.Context, id int64, in CloseRequest) (model.ParkingRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
	DeleteAllRecords(ctx context.Context, confirm string) (int64, error)
	ImportRecords(ctx context.Context, rows []ImportRow) (ImportResult, error)
	NextToken(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

// SettingsStore holds facility settings.
type SettingsStore interface {
	Settings(ctx context.Context) (map[string]string, error)
	DailyRate(ctx context.Context) (decimal.Decimal, error)
	SetDailyRate(ctx context.Context, rate decimal.Decimal) error
}

// PrintQueue relays print jobs to the polling workstation.
type PrintQueue interface {
	EnqueuePrintJob(ctx context.Context, payload json.RawMessage) (model.PrintJob, error)
	PendingPrintJobs(ctx context.Context) ([]model.PrintJob, error)
	AcknowledgePrintJob(ctx context.Context, id int64, success bool) (model.PrintJob, error)
	RecentPrintJobs(ctx context.Context, limit int) ([]model.PrintJobSummary, error)
	DeletePrintJob(ctx context.Context, id int64) error
	PurgePrintJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// Store defines the interface for all database operations.
type Store interface {
	RecordStore
	SettingsStore
	PrintQueue
	Ping(ctx context.Context) error
}

// Options tune a gormStore. Zero values pick sensible defaults.
type Options struct {
	Clock       clock.Clock
	Location    *time.Location
	DefaultRate decimal.Decimal
	// RateCacheTTL bounds how long the daily rate is served from memory. It
	// only applies on SQLite, whose database belongs to a single server
	// process; server databases may be shared by several processes and are
	// read on every call.
	RateCacheTTL time.Duration
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db          *gorm.DB
	clock       clock.Clock
	loc         *time.Location
	defaultRate decimal.Decimal
	rateTTL     time.Duration
	cacheRate   bool
	cache       *cache.Cache
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts Options) Store {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if !opts.DefaultRate.IsPositive() {
		opts.DefaultRate = decimal.NewFromInt(120)
	}
	if opts.RateCacheTTL <= 0 {
		opts.RateCacheTTL = defaultRateTTL
	}
	return &gormStore{
		db:          db,
		clock:       opts.Clock,
		loc:         opts.Location,
		defaultRate: opts.DefaultRate,
		rateTTL:     opts.RateCacheTTL,
		cacheRate:   db.Dialector.Name() == "sqlite",
		cache:       cache.New(opts.RateCacheTTL, cacheCleanupInterval),
	}
}

func (s *gormStore) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

// lockingReads reports whether SELECT ... FOR UPDATE is available. SQLite
// serialises writers on its single connection instead.
func (s *gormStore) lockingReads() bool {
	return s.db.Dialector.Name() != "sqlite"
}

// tokenText renders the token column as text for substring search.
func (s *gormStore) tokenText() string {
	if s.db.Dialector.Name() == "mysql" {
		return "CAST(token AS CHAR)"
	}
	return "CAST(token AS TEXT)"
}

// Ping checks that the database answers.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
