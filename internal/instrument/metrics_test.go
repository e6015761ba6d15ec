package instrument

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(crmRequests.WithLabelValues("contacts.search", "ok"))
	CRMRequest("contacts.search", "ok", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(crmRequests.WithLabelValues("contacts.search", "ok")))

	Customer("")
	assert.GreaterOrEqual(t, testutil.ToFloat64(customersProcessed.WithLabelValues("none")), 1.0)

	Touchpoint("Email")
	CRMRetry("deals.history")
	assert.GreaterOrEqual(t, testutil.ToFloat64(crmRetries.WithLabelValues("deals.history")), 1.0)
}
