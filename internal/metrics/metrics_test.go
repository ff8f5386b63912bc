package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRequestStartedRecordsStatus(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("/health", "200"))
	done := RequestStarted("/health")
	assert.Equal(t, float64(1), testutil.ToFloat64(requestsInFlight))
	done(200)

	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("/health", "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(requestsInFlight))
}

func TestRequestStartedNetworkError(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("/chat", StatusNetworkError))
	RequestStarted("/chat")(0)
	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("/chat", StatusNetworkError)))
}

func TestRecordRefresh(t *testing.T) {
	before := testutil.ToFloat64(refreshTotal.WithLabelValues(RefreshStale))
	RecordRefresh(RefreshStale)
	assert.Equal(t, before+1, testutil.ToFloat64(refreshTotal.WithLabelValues(RefreshStale)))
}
