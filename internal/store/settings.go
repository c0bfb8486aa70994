package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lorry-parking-backend/internal/model"
)

var minDailyRate = decimal.NewFromInt(1)

// Settings returns every stored setting.
func (s *gormStore) Settings(ctx context.Context) (map[string]string, error) {
	var rows []model.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// DailyRate returns the current per-day rate. On SQLite reads are served
// from a short lived cache that SetDailyRate refreshes.
func (s *gormStore) DailyRate(ctx context.Context) (decimal.Decimal, error) {
	if s.cacheRate {
		if v, ok := s.cache.Get(model.KeyDailyRate); ok {
			return v.(decimal.Decimal), nil
		}
	}

	var setting model.Setting
	err := s.db.WithContext(ctx).Where(&model.Setting{Key: model.KeyDailyRate}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaultRate, nil
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("load daily rate: %w", err)
	}

	rate, err := decimal.NewFromString(setting.Value)
	if err != nil || rate.LessThan(minDailyRate) {
		return s.defaultRate, nil
	}
	s.rememberRate(rate)
	return rate, nil
}

// SetDailyRate stores a new rate. It applies to bills computed afterwards only.
func (s *gormStore) SetDailyRate(ctx context.Context, rate decimal.Decimal) error {
	if rate.LessThan(minDailyRate) {
		return &ValidationError{Msg: "Invalid rate"}
	}

	setting := model.Setting{Key: model.KeyDailyRate, Value: rate.String()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("save daily rate: %w", err)
	}
	s.rememberRate(rate)
	return nil
}

func (s *gormStore) rememberRate(rate decimal.Decimal) {
	if s.cacheRate {
		s.cache.Set(model.KeyDailyRate, rate, s.rateTTL)
	}
}

// resolveRate picks an explicit positive override, else the current rate.
func (s *gormStore) resolveRate(ctx context.Context, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil && override.IsPositive() {
		return *override, nil
	}
	return s.DailyRate(ctx)
}
