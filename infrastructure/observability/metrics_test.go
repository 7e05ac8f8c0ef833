package observability

import (
	"context"
	"testing"

	"sacco/config"
	"sacco/events"
	"sacco/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, mp.start(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

// sumOf returns the total of the named counter across points matching attrs
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	want := attribute.NewSet(attrs...)
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if len(attrs) == 0 || dp.Attributes.Equals(&want) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMetricsProvider_RecordsSettlements(t *testing.T) {
	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.RecordEvent(ctx, events.TransactionSettledEvent{
		TxType: models.TransactionTypeC2B, Purpose: models.TransactionPurposeSavings, Status: models.TransactionStatusSuccess,
	})
	mp.RecordEvent(ctx, events.TransactionSettledEvent{
		TxType: models.TransactionTypeC2B, Purpose: models.TransactionPurposeSavings, Status: models.TransactionStatusFailed,
	})
	mp.RecordEvent(ctx, events.TransactionSettledEvent{
		TxType: models.TransactionTypeC2B, Purpose: models.TransactionPurposeSavings, Status: models.TransactionStatusSuccess,
	})

	assert.Equal(t, int64(2), sumOf(t, reader, TransactionsSettledTotal,
		attribute.String(LabelType, string(models.TransactionTypeC2B)),
		attribute.String(LabelPurpose, string(models.TransactionPurposeSavings)),
		attribute.String(LabelStatus, string(models.TransactionStatusSuccess)),
	))
	assert.Equal(t, int64(3), sumOf(t, reader, TransactionsSettledTotal))
}

func TestMetricsProvider_RecordsWorkflowEvents(t *testing.T) {
	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.RecordEvent(ctx, events.LoanStatusChangedEvent{LoanID: 1, NewStatus: models.LoanStatusPendingManager})
	mp.RecordEvent(ctx, events.GuarantorExpiredEvent{GuarantorID: 1})
	mp.RecordEvent(ctx, events.GuarantorExpiredEvent{GuarantorID: 2})
	mp.RecordEvent(ctx, events.ContributionRecordedEvent{ContributionID: 1})
	mp.RecordEvent(ctx, events.PensionCreditedEvent{MemberID: 1})

	assert.Equal(t, int64(1), sumOf(t, reader, LoanTransitionsTotal,
		attribute.String(LabelStatus, string(models.LoanStatusPendingManager))))
	assert.Equal(t, int64(2), sumOf(t, reader, GuarantorsExpiredTotal))
	assert.Equal(t, int64(1), sumOf(t, reader, ContributionsTotal))
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false
	mp := NewMetricsProvider(cfg)

	require.NoError(t, mp.Initialize(context.Background()))

	assert.NotPanics(t, func() {
		mp.RecordEvent(context.Background(), events.GuarantorExpiredEvent{GuarantorID: 1})
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())

	assert.Error(t, err)
}
