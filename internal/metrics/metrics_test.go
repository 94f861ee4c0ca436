package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncEvent("button")
	r.IncEvent("button")
	r.IncEvent("text")
	r.IncValidationFailure("phone")
	r.IncConversation(StageCompleted)
	r.ObserveExport(true, 120*time.Millisecond)
	r.ObserveExport(false, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.eventsTotal.WithLabelValues("button")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.eventsTotal.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.validationFailures.WithLabelValues("phone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.conversationsTotal.WithLabelValues(StageCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exportsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exportsTotal.WithLabelValues("error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}
