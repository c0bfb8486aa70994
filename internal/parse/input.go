package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is stored for optional free-text fields left blank.
const Placeholder = "--"

// ErrEmptyLorry is returned when a lorry number is blank after trimming.
var ErrEmptyLorry = errors.New("lorry is required")

var spaceRe = regexp.MustCompile(`\s+`)

// Lorry normalises a lorry number: surrounding space removed, inner runs of
// whitespace collapsed, upper-cased.
func Lorry(raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", ErrEmptyLorry
	}
	return strings.ToUpper(s), nil
}

// Text trims a free-text field and substitutes the placeholder when blank.
func Text(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Placeholder
	}
	return s
}

// Token reads a caller-supplied token that may arrive as a JSON number or a
// numeric string. Anything absent, non-numeric or not positive yields 0,
// meaning "allocate one".
func Token(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	} else {
		s = string(raw)
	}

	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return positive(n)
	}
	// Spreadsheet exports sometimes write "12.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return positive(int64(f))
	}
	return 0
}

func positive(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
