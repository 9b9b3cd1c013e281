package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newTestMetrics(t *testing.T, detailedLabels bool) *Metrics {
	t.Helper()

	provider := sdkmetric.NewMeterProvider()
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	m, err := NewMetrics(provider.Meter("test"), detailedLabels)
	require.NoError(t, err)
	return m
}

func TestNewMetrics(t *testing.T) {
	m := newTestMetrics(t, false)

	assert.NotNil(t, m.httpRequestsTotal)
	assert.NotNil(t, m.httpRequestDuration)
	assert.NotNil(t, m.syncCyclesTotal)
	assert.NotNil(t, m.syncCycleDuration)
	assert.NotNil(t, m.syncAccountsSkippedTotal)
	assert.NotNil(t, m.tokenRefreshTotal)
	assert.NotNil(t, m.providerOperationsTotal)
	assert.NotNil(t, m.providerOperationDuration)
	assert.NotNil(t, m.eventMutationsTotal)
}

func TestMetricsRecording(t *testing.T) {
	m := newTestMetrics(t, false)
	ctx := context.Background()

	// None of these should panic with initialized instruments.
	m.RecordHTTPRequest(ctx, "GET", "/api/v1/sync", 200, 50*time.Millisecond)
	m.RecordSyncCycle(ctx, StatusSuccess, 2*time.Second)
	m.RecordAccountSkipped(ctx, SkipReasonAuth)
	m.RecordTokenRefresh(ctx, RefreshResultInvalidGrant)
	m.RecordProviderOperation(ctx, "google", "list_events", StatusSuccess, 120*time.Millisecond)
	m.RecordEventMutation(ctx, MutationCreate, StatusSuccess)
	m.RecordEventMutationWithAccount(ctx, MutationDelete, StatusError, "acct-1")
}

func TestZeroValueMetricsAreNoOp(t *testing.T) {
	// A disabled provider hands out a zero-value recorder; every method must
	// be safe to call.
	m := &Metrics{}
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	m.RecordSyncCycle(ctx, StatusError, time.Second)
	m.RecordAccountSkipped(ctx, SkipReasonProvider)
	m.RecordTokenRefresh(ctx, RefreshResultSuccess)
	m.RecordProviderOperation(ctx, "google", "insert", StatusError, time.Millisecond)
	m.RecordEventMutation(ctx, MutationUpdate, StatusSuccess)
	m.RecordEventMutationWithAccount(ctx, MutationCreate, StatusSuccess, "acct-1")
}

func TestDisabledProvider(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(context.Background(), config)
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}
