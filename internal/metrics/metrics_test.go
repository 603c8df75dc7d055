package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	// second call must be a no-op, not a duplicate-registration error
	require.NoError(t, Register(reg))
}

func TestCountersMove(t *testing.T) {
	IncSample("cpu")
	IncSampleFailure("gpu")
	IncDelivery("cpu")
	IncDrop("memory")
	ObserveSampleDuration("cpu", 0.01)
	SetPaused("cpu", true)
	SetPaused("cpu", false)
	SetActiveSubscriptions("cpu", 3)

	g, err := activeSubscriptions.GetMetricWithLabelValues("cpu")
	require.NoError(t, err)
	assert.NotNil(t, g)
}
