package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCmd(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	out, err := execute("monitor")
	require.NoError(t, err)
	assert.True(t, ts.monitor.started)
	assert.True(t, ts.monitor.stopped)
	assert.Contains(t, out, "Monitoring ABCD (registration_statement, prospectus) every 6h0m0s")
	assert.Contains(t, out, "Last refresh: 2024-05-02 10:00:00")
}

func TestMonitorCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()
	services.Monitor = nil

	_, err := execute("monitor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor.tickers")
}

func TestWatchCmd_NoInbox(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()

	_, err := execute("watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.inbox_dir")
}

func TestMCPServeCmd_RequiresAnswerer(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()
	services.Answerer = nil

	_, err := execute("mcp", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service is required")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "filingqa version")
}
