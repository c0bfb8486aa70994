package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/model"
)

const (
	connectAttempts = 15
	connectBackoff  = 2 * time.Second
)

// Init opens the configured database, runs migrations and seeds settings.
func Init(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	dialector, err := openDialector(&cfg.Database)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	}

	// Server databases may still be starting when the service comes up.
	attempts := 1
	if dialector.Name() != "sqlite" {
		attempts = connectAttempts
	}
	var db *gorm.DB
	for i := 1; i <= attempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		if i < attempts {
			log.WithError(err).Warnf("database connection attempt %d/%d failed, retrying in %s", i, attempts, connectBackoff)
			time.Sleep(connectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// One connection gives SQLite a single writer; check-in and check-out
		// transactions are serialised by it.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		if err := applySQLitePragmas(db, cfg.Database.DSN); err != nil {
			return nil, err
		}
	} else {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations")
	if err := db.AutoMigrate(
		&model.ParkingRecord{},
		&model.Setting{},
		&model.PrintJob{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if err := applyActiveLorryIndex(db, log); err != nil {
		return nil, err
	}

	if err := seedSettings(db, cfg.Billing.DefaultDailyRate); err != nil {
		return nil, err
	}

	log.WithField("driver", db.Dialector.Name()).Info("database initialization complete")
	return db, nil
}

func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		return sqlite.Open(cfg.DSN), nil
	case "postgres", "postgresql":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func applySQLitePragmas(db *gorm.DB, dsn string) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	if !isMemoryDSN(dsn) {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
		)
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return fmt.Errorf("pragma failed on %q: %w", p, err)
		}
	}
	return nil
}

// applyActiveLorryIndex enforces at most one IN record per lorry at the
// storage level. MySQL has no partial indexes; there the check-in
// transaction's locking read is the only guard.
func applyActiveLorryIndex(db *gorm.DB, log logrus.FieldLogger) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		ddl := "CREATE UNIQUE INDEX IF NOT EXISTS idx_parking_records_active_lorry " +
			"ON parking_records (lorry) WHERE status = 'IN';"
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	default:
		log.WithField("driver", db.Dialector.Name()).
			Warn("partial unique index unsupported; duplicate check-ins are guarded by row locks only")
	}
	return nil
}

func seedSettings(db *gorm.DB, defaultRate string) error {
	seed := model.Setting{Key: model.KeyDailyRate, Value: defaultRate}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}
