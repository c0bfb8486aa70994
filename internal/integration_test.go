package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/api"
	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/db"
	"lorry-parking-backend/internal/logging"
	"lorry-parking-backend/internal/printagent"
	"lorry-parking-backend/internal/store"
)

// TestParkingLifecycle drives a stay end to end: the desk checks a lorry in
// and queues an entry slip, the workstation agent prints it, the desk checks
// the lorry out and the dashboard reflects the revenue.
func TestParkingLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.PrintRelay.Secret = "lifecycle"

	log := logging.Discard()
	gormDB, err := db.Init(cfg, log)
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	s := store.NewGormStore(gormDB, store.Options{
		Location:    clock.LoadLocation(cfg.Billing.Timezone),
		DefaultRate: decimal.RequireFromString(cfg.Billing.DefaultDailyRate),
	})
	server := httptest.NewServer(api.NewRouter(s, cfg, log))
	defer server.Close()

	call := func(method, path, body string) map[string]any {
		t.Helper()
		req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Print-Token", cfg.PrintRelay.Secret)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Equal(t, true, out["ok"], "%s %s: %v", method, path, out)
		return out
	}

	// 1. Check in.
	rec := call(http.MethodPost, "/api/records",
		`{"lorry":"mh12 ab 1234","driver":"Sunil","entryISO":"2025-02-14T04:30:00.000Z"}`)["data"].(map[string]any)
	assert.Equal(t, "MH12 AB 1234", rec["lorry"])
	id := int64(rec["id"].(float64))

	// 2. Queue the entry slip and let the workstation print it.
	slip, _ := json.Marshal(map[string]any{
		"type": "entry", "token": rec["token"], "lorry": rec["lorry"], "entry": rec["entryDisplay"],
	})
	call(http.MethodPost, "/api/print-queue", string(slip))

	spool := t.TempDir()
	cfg.Agent.ServerURL = server.URL
	agent := printagent.NewService(cfg, &printagent.FilePrinter{Dir: spool}, log)
	assert.Equal(t, 1, agent.PollOnce(context.Background()))

	files, err := filepath.Glob(filepath.Join(spool, "*-job-1.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	receipt, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(receipt), "MH12 AB 1234")
	assert.Contains(t, string(receipt), "14/2/2025, 10:00:00 AM")

	pending := call(http.MethodGet, "/api/print-queue/pending", "")["data"].([]any)
	assert.Empty(t, pending)

	// 3. Check out a little over two days later.
	out := call(http.MethodPatch, "/api/records/"+strconv.FormatInt(id, 10)+"/exit",
		`{"exitISO":"2025-02-16T05:00:00.000Z"}`)["data"].(map[string]any)
	assert.Equal(t, "OUT", out["status"])
	assert.EqualValues(t, 3, out["days"])
	assert.EqualValues(t, 360, out["amount"])

	// 4. All-time totals include the stay.
	stats := call(http.MethodGet, "/api/stats", "")["data"].(map[string]any)
	assert.EqualValues(t, 0, stats["parked"])
	assert.EqualValues(t, 1, stats["exited"])
	assert.EqualValues(t, 360, stats["total_revenue"])
}
