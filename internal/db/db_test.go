package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/logging"
	"lorry-parking-backend/internal/model"
)

func TestInit_SQLiteSchema(t *testing.T) {
	cfg := config.Default()
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.Billing.DefaultDailyRate = "95"

	gdb, err := Init(cfg, logging.Discard())
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()

	var rate model.Setting
	require.NoError(t, gdb.Where(&model.Setting{Key: model.KeyDailyRate}).Take(&rate).Error)
	assert.Equal(t, "95", rate.Value)

	// Seeding again keeps an operator-chosen rate.
	require.NoError(t, seedSettings(gdb, "120"))
	require.NoError(t, gdb.Where(&model.Setting{Key: model.KeyDailyRate}).Take(&rate).Error)
	assert.Equal(t, "95", rate.Value)

	now := time.Now().UTC()
	rec := func(token int64, status model.RecordStatus) *model.ParkingRecord {
		return &model.ParkingRecord{
			Token: token, Lorry: "KA01", Driver: "--", Phone: "--", Remarks: "--",
			EntryAt: now, EntryDisplay: "x", ExitDisplay: "--", Status: status, CreatedAt: now,
		}
	}
	require.NoError(t, gdb.Create(rec(1, model.StatusOut)).Error)
	require.NoError(t, gdb.Create(rec(2, model.StatusIn)).Error)

	// A second IN row for the same lorry is refused by the partial index.
	err = gdb.Create(rec(3, model.StatusIn)).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	// So is a reused token.
	err = gdb.Create(rec(1, model.StatusOut)).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestOpenDialector(t *testing.T) {
	for _, driver := range []string{"", "sqlite", "SQLite3", "postgres", "postgresql", "mysql"} {
		d, err := openDialector(&config.DatabaseConfig{Driver: driver, DSN: "x"})
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := openDialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.EqualError(t, err, `unsupported database driver "oracle"`)
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, isMemoryDSN(":memory:"))
	assert.True(t, isMemoryDSN("file:abc?mode=memory&cache=shared"))
	assert.False(t, isMemoryDSN("kpr.db"))
}
