// Package billing turns a parked interval into billable days and an amount.
//
// Days follow the elapsed-time policy: any positive elapsed time is rounded
// up to the next whole day of 86400 seconds, and a zero or negative interval
// still bills one day.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const secondsPerDay = 86400

// Quote is the outcome of billing one stay.
type Quote struct {
	Days   int64
	Amount decimal.Decimal
}

// Days returns the number of billable days between entry and exit, never less than 1.
func Days(entry, exit time.Time) int64 {
	elapsed := exit.Sub(entry)
	if elapsed <= 0 {
		return 1
	}
	secs := int64(elapsed / time.Second)
	if elapsed%time.Second != 0 {
		secs++
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// Amount multiplies days by the daily rate without float rounding.
func Amount(days int64, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(days))
}

// Compute bills a stay from entry to exit at rate.
func Compute(entry, exit time.Time, rate decimal.Decimal) Quote {
	days := Days(entry, exit)
	return Quote{
		Days:   days,
		Amount: Amount(days, rate),
	}
}
