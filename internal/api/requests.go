package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/parse"
	"lorry-parking-backend/internal/store"
)

var errInvalidBody = errors.New("Invalid JSON body")

// bindOptionalJSON decodes the request body into dst. An empty body leaves
// dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return errInvalidBody
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// checkInRequest is the body of POST /api/records.
type checkInRequest struct {
	Lorry    string `json:"lorry"`
	Driver   string `json:"driver"`
	Phone    string `json:"phone"`
	Remarks  string `json:"remarks"`
	Entry    string `json:"entry"`
	EntryISO string `json:"entryISO"`
}

func (r checkInRequest) toNewRecord(loc *time.Location) (store.NewRecord, error) {
	if _, err := parse.Lorry(r.Lorry); err != nil {
		return store.NewRecord{}, err
	}
	entry, err := optionalTime(firstNonEmpty(r.EntryISO, r.Entry), loc)
	if err != nil {
		return store.NewRecord{}, errors.New("Invalid entry time")
	}
	return store.NewRecord{
		Lorry:   r.Lorry,
		Driver:  r.Driver,
		Phone:   r.Phone,
		Remarks: r.Remarks,
		EntryAt: entry,
	}, nil
}

// checkOutRequest is the optional body of PATCH /api/records/:id/exit.
type checkOutRequest struct {
	Exit    string          `json:"exit"`
	ExitISO string          `json:"exitISO"`
	Rate    json.RawMessage `json:"rate"`
}

func (r checkOutRequest) toCloseRequest(loc *time.Location) (store.CloseRequest, error) {
	exit, err := optionalTime(firstNonEmpty(r.ExitISO, r.Exit), loc)
	if err != nil {
		return store.CloseRequest{}, errors.New("Invalid exit time")
	}
	req := store.CloseRequest{ExitAt: exit}
	if blankRate(r.Rate) {
		return req, nil
	}
	rate, err := decimalFromJSON(r.Rate)
	if err != nil || rate.IsNegative() {
		return store.CloseRequest{}, errors.New("Invalid rate")
	}
	// Zero means the rate box was left empty.
	if rate.IsPositive() {
		req.Rate = &rate
	}
	return req, nil
}

// blankRate reports an absent, null or empty-string rate.
func blankRate(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`:
		return true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// importRow is one element of POST /api/import's records array.
type importRow struct {
	Lorry    string          `json:"lorry"`
	Driver   string          `json:"driver"`
	Phone    string          `json:"phone"`
	Remarks  string          `json:"remarks"`
	Token    json.RawMessage `json:"token"`
	Entry    string          `json:"entry"`
	EntryISO string          `json:"entryISO"`
	Exit     string          `json:"exit"`
	ExitISO  string          `json:"exitISO"`
}

// decodeImportRows turns raw rows into store rows. Rows that cannot be read
// are reported straight away and left out of the batch.
func decodeImportRows(raws []json.RawMessage, loc *time.Location) ([]store.ImportRow, []store.RowError) {
	rows := make([]store.ImportRow, 0, len(raws))
	var rejected []store.RowError
	for i, raw := range raws {
		n := i + 1
		var r importRow
		if err := json.Unmarshal(raw, &r); err != nil {
			rejected = append(rejected, store.RowError{Row: n, Error: "Row is not an object"})
			continue
		}
		entry, err := optionalTime(firstNonEmpty(r.EntryISO, r.Entry), loc)
		if err != nil {
			rejected = append(rejected, store.RowError{Row: n, Error: "Invalid entry time"})
			continue
		}
		exit, err := optionalTime(firstNonEmpty(r.ExitISO, r.Exit), loc)
		if err != nil {
			rejected = append(rejected, store.RowError{Row: n, Error: "Invalid exit time"})
			continue
		}
		rows = append(rows, store.ImportRow{
			Row:     n,
			Lorry:   r.Lorry,
			Driver:  r.Driver,
			Phone:   r.Phone,
			Remarks: r.Remarks,
			Token:   parse.Token(r.Token),
			EntryAt: entry,
			ExitAt:  exit,
		})
	}
	return rows, rejected
}

// settingsRequest is the body of POST /api/settings.
type settingsRequest struct {
	DailyRate json.RawMessage `json:"daily_rate"`
}

// ackRequest is the optional body of PATCH /api/print-queue/:id/ack.
type ackRequest struct {
	Success *bool `json:"success"`
}

func (r ackRequest) success() bool {
	return r.Success == nil || *r.Success
}

// decimalFromJSON accepts a JSON number or a numeric string.
func decimalFromJSON(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, err
		}
	} else {
		s = string(raw)
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func optionalTime(raw string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := clock.Parse(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// queryInt reads an integer query parameter clamped to at least 1. An absent
// or non-numeric value yields def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return def
	}
	return max(n, 1)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
