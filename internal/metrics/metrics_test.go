package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("read", OutcomeOK, 10*time.Millisecond)
	m.ObserveRequest("read", OutcomeOK, 20*time.Millisecond)
	m.ObserveRequest("read", OutcomeRemoteError, time.Millisecond)
	m.AddBytesWritten(5)
	m.IncListed("file")

	require.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("read", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("read", OutcomeRemoteError)))
	require.Equal(t, 5.0, testutil.ToFloat64(m.bytesWritten))
	require.Equal(t, 1.0, testutil.ToFloat64(m.listedEntries.WithLabelValues("file")))

	count, err := testutil.GatherAndCount(reg, "sdstore_remote_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveRequest("read", OutcomeOK, time.Second)
		m.AddBytesWritten(1)
		m.IncListed("dir")
	})
}
