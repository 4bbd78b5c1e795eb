package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domainAudit "github.com/mahalbangetid-beep/scb-sub003/domains/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := newSink(&buf, nil)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(domainAudit.Entry{
		ID:         "a1",
		ActorID:    "admin-1",
		Action:     "fonepay.credit_unconfirmed",
		EntityType: "fonepay_transaction",
		EntityID:   "tx-1",
		Severity:   domainAudit.SeverityCritical,
		Detail:     map[string]any{"amount": 1500.0},
		CreatedAt:  at,
	}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "fonepay.credit_unconfirmed", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "tx-1", line["entity_id"])
	assert.Equal(t, 1500.0, line["detail.amount"])
	assert.True(t, strings.HasPrefix(line["time"].(string), "2025-03-01T10:00:00"))
}

func TestFileSinkRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "fonepay.log")
	sink := NewFileSink(FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, sink.Write(domainAudit.Entry{Action: "fonepay.approved", Severity: domainAudit.SeverityInfo}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"fonepay.approved"`)
}
