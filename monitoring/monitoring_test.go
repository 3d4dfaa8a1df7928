package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstrumentsUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		NotificationCounter.Add(context.Background(), 1)
		VerificationDuration.Record(context.Background(), 0.2)
	})
}

func TestCreateInstruments_RecordsThroughReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, createInstruments(mp.Meter("test")))

	CheckoutCounter.Add(context.Background(), 2,
		metric.WithAttributes(attribute.String("status", "success")))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var found bool
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name == "payza_checkouts_total" {
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(2), sum.DataPoints[0].Value)
			found = true
		}
	}
	assert.True(t, found)
}
