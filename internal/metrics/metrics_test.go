package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	RecordHTTPRequest("GET", "/api/health", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(OAuthLoginsTotal.WithLabelValues("success"))
	RecordLogin("success")
	assert.Equal(t, before+1, testutil.ToFloat64(OAuthLoginsTotal.WithLabelValues("success")))
}

func TestRecordProviderCall(t *testing.T) {
	RecordProviderCall("token", 10*time.Millisecond, nil)
	RecordProviderCall("token", 10*time.Millisecond, errors.New("boom"))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(OAuthProviderDuration, "timenest_oauth_provider_duration_seconds"), 2)
}
