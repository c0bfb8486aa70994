package printagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Printer prints one job. A returned error is reported to the relay as a
// failed print.
type Printer interface {
	Print(ctx context.Context, job Job) error
}

// receiptFields are printed first, in this order, under these labels.
var receiptFields = []struct{ key, label string }{
	{"type", "Type"},
	{"token", "Token"},
	{"lorry", "Lorry"},
	{"driver", "Driver"},
	{"phone", "Phone"},
	{"entry", "Entry"},
	{"entryDisplay", "Entry"},
	{"exit", "Exit"},
	{"exitDisplay", "Exit"},
	{"days", "Days"},
	{"rate", "Rate"},
	{"amount", "Amount"},
	{"remarks", "Remarks"},
}

const receiptWidth = 32

// RenderReceipt lays a job out as plain text for a narrow thermal printer.
// Object payloads list the well-known fields first and anything else after,
// sorted by key; other payloads are printed as raw JSON.
func RenderReceipt(job Job) string {
	var b strings.Builder
	rule := strings.Repeat("-", receiptWidth) + "\n"

	fmt.Fprintf(&b, "%s\n", center("PARKING RECEIPT", receiptWidth))
	b.WriteString(rule)

	var fields map[string]any
	if err := json.Unmarshal(job.Data, &fields); err != nil || fields == nil {
		b.Write(job.Data)
		b.WriteString("\n")
	} else {
		seen := map[string]bool{}
		for _, f := range receiptFields {
			if v, ok := fields[f.key]; ok && v != nil {
				fmt.Fprintf(&b, "%-8s %s\n", f.label+":", formatValue(v))
			}
			seen[f.key] = true
		}
		var rest []string
		for k := range fields {
			if !seen[k] {
				rest = append(rest, k)
			}
		}
		slices.Sort(rest)
		for _, k := range rest {
			fmt.Fprintf(&b, "%s: %s\n", k, formatValue(fields[k]))
		}
	}

	b.WriteString(rule)
	fmt.Fprintf(&b, "Job #%d\n", job.ID)
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.2f", x)
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

// FilePrinter writes each receipt to a text file in a spool directory, where
// the operating system's print spooler or a human picks it up.
type FilePrinter struct {
	Dir string
	Now func() time.Time
}

// Print writes job's receipt atomically: a temporary file is renamed into
// place so a watcher never sees a half-written receipt.
func (p *FilePrinter) Print(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	name := fmt.Sprintf("%s-job-%d.txt", now().UTC().Format("20060102T150405"), job.ID)
	final := filepath.Join(p.Dir, name)

	tmp, err := os.CreateTemp(p.Dir, ".receipt-*")
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	if _, err := tmp.WriteString(RenderReceipt(job)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("spool receipt: %w", err)
	}
	return nil
}
