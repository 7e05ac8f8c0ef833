package cmd

import (
	"context"
	"fmt"

	"sacco/api"
	"sacco/config"
	"sacco/database"
	"sacco/events"
	"sacco/gateway"
	"sacco/infrastructure"
	"sacco/infrastructure/observability"
	"sacco/repository"
	"sacco/service"

	log "github.com/sirupsen/logrus"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	services api.Services
	closers  []func()
}

// newApp connects to every backing service and builds the service layer
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	if err := a.startEventStreaming(ctx, eventBus); err != nil {
		a.Close()
		return nil, err
	}

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Register(eventBus)
	a.closers = append(a.closers, func() {
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	})

	var tokens gateway.TokenStore
	if cfg.RedisURL != "" {
		client, err := gateway.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		tokens = gateway.NewRedisTokenStore(client)
	} else {
		log.Warn("REDIS_URL not set, gateway tokens will not be cached")
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	paymentGateway := gateway.NewDarajaClient(cfg.Daraja, cfg.GatewayTimeout, tokens)
	ledger := service.NewTransactionLedger(uowFactory, paymentGateway, cfg.GatewayTimeout)
	executor := service.NewEffectExecutor(ledger, notifier)

	a.services = api.Services{
		Loans:         service.NewLoanService(uowFactory, ledger, executor, cfg),
		Contributions: service.NewContributionService(uowFactory, ledger, executor),
		Reconciler:    service.NewCallbackReconciler(uowFactory, ledger, executor),
		Expiry:        service.NewGuarantorExpiryService(uowFactory, executor, cfg.GuarantorResponseWindow),
		Redispatch:    service.NewRedispatchService(uowFactory, executor, cfg.RedispatchAfter),
		Interest:      service.NewInterestService(uowFactory, cfg),
	}

	log.Info("Services initialized successfully")
	return a, nil
}

func (a *app) startEventStreaming(ctx context.Context, bus *events.Bus) error {
	if a.cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, events stay in process")
		return nil
	}

	client := infrastructure.NewNATSClient(a.cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close NATS connection")
		}
	})

	if err := client.EnsureStream(infrastructure.StreamName, infrastructure.Subjects()); err != nil {
		return err
	}

	infrastructure.NewEventStreamer(client).Register(bus)
	return nil
}

func (a *app) newNotifier() (service.Notifier, error) {
	if a.cfg.DiscordToken == "" || a.cfg.DiscordOpsChannelID == "" {
		return infrastructure.LogNotifier{}, nil
	}

	session, err := infrastructure.OpenDiscordSession(a.cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Discord session")
		}
	})

	log.WithField("channel", a.cfg.DiscordOpsChannelID).Info("Sending notifications to Discord")
	return infrastructure.NewDiscordNotifier(session, a.cfg.DiscordOpsChannelID), nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
