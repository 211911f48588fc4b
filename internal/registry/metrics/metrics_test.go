package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/registry/metrics"
)

func TestObserveAndGather(t *testing.T) {
	metrics.Init()
	metrics.Observe("test_op", time.Now().Add(-10*time.Millisecond))

	out, err := metrics.Gather()
	require.NoError(t, err)
	assert.Contains(t, string(out), "agent_memory_store_latency_seconds")
	assert.True(t, strings.Contains(string(out), `operation="test_op"`))
}
