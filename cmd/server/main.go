package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/swarmdock/backend/api"
	"github.com/swarmdock/backend/db"
	"github.com/swarmdock/backend/pkg/alert"
	"github.com/swarmdock/backend/pkg/clientip"
	"github.com/swarmdock/backend/pkg/config"
	"github.com/swarmdock/backend/pkg/httpserver"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/metrics"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/pkg/ratelimiter"
	"github.com/swarmdock/backend/pkg/redis"
	"github.com/swarmdock/backend/pkg/requestid"
	"github.com/swarmdock/backend/pkg/scheduler"
	"github.com/swarmdock/backend/pkg/swarm"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/capacity"
	"github.com/swarmdock/backend/svc/monitor"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
	"github.com/swarmdock/backend/svc/store/pgstore"
	"github.com/swarmdock/backend/svc/usage"
)

type appConfig struct {
	Env             string        `env:"APP_ENV" envDefault:"development"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"swarmdock"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	PriceListPath   string        `env:"PRICE_LIST_PATH"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type configs struct {
	app      appConfig
	http     httpserver.Config
	pg       pg.Config
	redis    redis.Config
	swarm    swarm.Config
	stripe   payment.StripeConfig
	paddle   payment.PaddleConfig
	alert    alert.Config
	checkout ratelimiter.Config
	billing  billing.Config
	capacity capacity.Config
	monitor  monitor.Config
}

func loadConfigs() (configs, error) {
	var c configs
	err := errors.Join(
		config.Load(&c.app),
		config.Load(&c.http),
		config.Load(&c.pg),
		config.Load(&c.redis),
		config.Load(&c.swarm),
		config.Load(&c.stripe),
		config.Load(&c.paddle),
		config.Load(&c.alert),
		config.Load(&c.checkout),
		config.Load(&c.billing),
		config.Load(&c.capacity),
		config.Load(&c.monitor),
	)
	return c, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "swarmdock: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfigs()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.app.Env, cfg.app.ServiceName),
		logger.WithLevelName(cfg.app.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor, clientip.LoggerExtractor),
	)
	logger.SetAsDefault(log)

	prices, err := loadPriceList(cfg.app.PriceListPath)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, cfg.pg, db.Migrations, db.MigrationsDir, log); err != nil {
		return err
	}
	store := pgstore.New(pool)

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	var rdb *goredis.Client
	if cfg.redis.Enabled() {
		rdb, err = redis.Connect(ctx, cfg.redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	} else {
		log.Warn("redis is not configured, webhook deduplication relies on the database only")
	}

	alerts, err := alert.FromConfig(cfg.alert, log)
	if err != nil {
		return err
	}

	providers, err := paymentProviders(cfg, log)
	if err != nil {
		return err
	}

	node, err := swarm.New(cfg.swarm, swarm.WithLogger(log))
	if err != nil {
		return err
	}

	m := metrics.New()

	plans := plan.NewService(store.Plans(), plan.WithAlerts(alerts), plan.WithLogger(log))
	meter := usage.NewEngine(store.Usage(), plans, usage.WithLogger(log))
	provisioner := capacity.NewProvisioner(cfg.capacity, node, store.Organizations(),
		capacity.WithAlerts(alerts),
		capacity.WithMetrics(m),
		capacity.WithLogger(log),
	)

	processorOpts := []billing.Option{
		billing.WithAlerts(alerts),
		billing.WithMetrics(m),
		billing.WithLogger(log),
	}
	if rdb != nil {
		processorOpts = append(processorOpts, billing.WithDeduplicator(redis.NewDeduplicator(rdb, cfg.redis)))
	}
	processor := billing.NewProcessor(cfg.billing, billing.Deps{
		Providers:     providers,
		Payments:      store.Payments(),
		Notifications: store.Notifications(),
		Plans:         plans,
		Usage:         meter,
		Capacity:      provisioner,
		Organizations: store.Organizations(),
		Prices:        prices,
	}, processorOpts...)

	sched := scheduler.New(scheduler.WithLogger(log), scheduler.WithObserver(m.ObserveJob))
	monitors := monitor.New(cfg.monitor, plans, store.Organizations(), node, provisioner, meter,
		monitor.WithGauges(m),
		monitor.WithLogger(log),
	)
	if err := monitors.Register(sched); err != nil {
		return err
	}

	limits := ratelimiter.NewMemoryStore()
	defer limits.Close()
	checkoutLimit, err := ratelimiter.NewBucket(limits, cfg.checkout)
	if err != nil {
		return err
	}

	router := api.New(api.Deps{
		Billing:   processor,
		Plans:     plans,
		Usage:     meter,
		Providers: providers,
		Prices:    prices,
	},
		api.WithLogger(log),
		api.WithHealthChecks(5*time.Second, checks...),
		api.WithMetricsHandler(m.Handler()),
		api.WithCheckoutLimit(checkoutLimit),
	)

	server := httpserver.New(cfg.http,
		httpserver.WithLogger(log),
		httpserver.WithServiceName(cfg.app.ServiceName),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, router.Handler()) })
	g.Go(func() error { return sched.Start(gctx) })
	runErr := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.app.ShutdownTimeout)
	defer cancel()
	if err := processor.Wait(drainCtx); err != nil {
		log.Error("background provisioning did not finish", logger.Error(err))
	}
	if err := alerts.Wait(drainCtx); err != nil {
		log.Error("pending alerts were dropped", logger.Error(err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Info("shutdown complete")
	return nil
}

func loadPriceList(path string) (*pricing.PriceList, error) {
	if path == "" {
		return pricing.DefaultPriceList()
	}
	return pricing.LoadPriceList(path)
}

func paymentProviders(cfg configs, log *slog.Logger) (*payment.Registry, error) {
	var providers []payment.Provider
	if cfg.stripe.Enabled() {
		p, err := payment.NewStripeProvider(cfg.stripe, payment.WithStripeLogger(log))
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.paddle.Enabled() {
		p, err := payment.NewPaddleProvider(cfg.paddle, payment.WithPaddleLogger(log))
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	registry := payment.NewRegistry(providers...)
	if _, err := registry.Get(cfg.billing.Provider); err != nil {
		return nil, fmt.Errorf("checkout provider %q is not configured: %w", cfg.billing.Provider, err)
	}
	return registry, nil
}
