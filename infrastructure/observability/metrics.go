package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sacco/config"
	"sacco/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider counts ledger activity from committed events
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	transactionsInitiated metric.Int64Counter
	transactionsSettled   metric.Int64Counter
	loanTransitions       metric.Int64Counter
	guarantorResponses    metric.Int64Counter
	guarantorsExpired     metric.Int64Counter
	contributions         metric.Int64Counter
	interestRuns          metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.start(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader; callers hold mu
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("sacco")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.transactionsInitiated, TransactionsInitiatedTotal, "Transactions opened against the payment gateway"},
		{&mp.transactionsSettled, TransactionsSettledTotal, "Transactions that reached a terminal status"},
		{&mp.loanTransitions, LoanTransitionsTotal, "Loan workflow transitions"},
		{&mp.guarantorResponses, GuarantorResponsesTotal, "Guarantor approvals and rejections"},
		{&mp.guarantorsExpired, GuarantorsExpiredTotal, "Guarantor requests expired by the sweep"},
		{&mp.contributions, ContributionsTotal, "Recorded savings contributions"},
		{&mp.interestRuns, InterestRunsTotal, "Completed daily interest runs"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Register records metrics for every committed event on the bus
func (mp *MetricsProvider) Register(bus *events.Bus) {
	bus.SubscribeAll(mp.RecordEvent)
}

// RecordEvent increments the counter matching the event
func (mp *MetricsProvider) RecordEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.TransactionInitiatedEvent:
		mp.transactionsInitiated.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelType, string(e.TxType)),
			attribute.String(LabelPurpose, string(e.Purpose)),
		))
	case events.TransactionSettledEvent:
		mp.transactionsSettled.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelType, string(e.TxType)),
			attribute.String(LabelPurpose, string(e.Purpose)),
			attribute.String(LabelStatus, string(e.Status)),
		))
	case events.LoanStatusChangedEvent:
		mp.loanTransitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelStatus, string(e.NewStatus)),
		))
	case events.GuarantorRespondedEvent:
		mp.guarantorResponses.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelStatus, string(e.Status)),
		))
	case events.GuarantorExpiredEvent:
		mp.guarantorsExpired.Add(ctx, 1)
	case events.ContributionRecordedEvent:
		mp.contributions.Add(ctx, 1)
	case events.InterestAppliedEvent:
		mp.interestRuns.Add(ctx, 1)
	}
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
