package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lorry-parking-backend/internal/billing"
	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/model"
	"lorry-parking-backend/internal/parse"
)

// ImportRecords inserts rows one by one, each in its own transaction. A bad
// row is reported against its position and does not affect the others. Rows
// with an exit are billed at the rate current when the import starts.
func (s *gormStore) ImportRecords(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	rate, err := s.DailyRate(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Errors: []RowError{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.importRow(ctx, row, rate); err != nil {
			result.Errors = append(result.Errors, RowError{Row: row.Row, Error: err.Error()})
			continue
		}
		result.Added++
	}
	return result, nil
}

func (s *gormStore) importRow(ctx context.Context, row ImportRow, rate decimal.Decimal) error {
	lorry, err := parse.Lorry(row.Lorry)
	if err != nil {
		return &ValidationError{Msg: "Missing lorry"}
	}

	now := s.now()
	entry := now
	if row.EntryAt != nil {
		entry = row.EntryAt.UTC()
	}

	rec := model.ParkingRecord{
		Lorry:        lorry,
		Driver:       parse.Text(row.Driver),
		Phone:        parse.Text(row.Phone),
		Remarks:      parse.Text(row.Remarks),
		EntryAt:      entry,
		EntryDisplay: clock.Display(entry, s.loc),
		ExitDisplay:  parse.Placeholder,
		Status:       model.StatusIn,
		CreatedAt:    now,
	}
	if row.ExitAt != nil {
		exit := row.ExitAt.UTC()
		quote := billing.Compute(entry, exit, rate)
		amount := quote.Amount.InexactFloat64()
		rec.ExitAt = &exit
		rec.ExitDisplay = clock.Display(exit, s.loc)
		rec.Days = &quote.Days
		rec.Amount = &amount
		rec.Status = model.StatusOut
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.Status == model.StatusIn {
			if err := s.ensureNotParked(tx, lorry); err != nil {
				return err
			}
		}

		token, err := s.importToken(tx, row.Token)
		if err != nil {
			return err
		}
		rec.Token = token
		return tx.Create(&rec).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("row conflicts with an existing record")
	}
	return err
}

// importToken keeps a supplied token when it is free and allocates a new one
// otherwise.
func (s *gormStore) importToken(tx *gorm.DB, wanted int64) (int64, error) {
	if wanted > 0 {
		var taken int64
		if err := tx.Model(&model.ParkingRecord{}).Where("token = ?", wanted).Count(&taken).Error; err != nil {
			return 0, err
		}
		if taken == 0 {
			return wanted, nil
		}
	}
	return nextToken(tx)
}
