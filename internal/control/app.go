package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/flowpanel/internal/api"
	"github.com/vietddude/flowpanel/internal/core/account"
	"github.com/vietddude/flowpanel/internal/core/config"
	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/network"
	"github.com/vietddude/flowpanel/internal/core/txtracker"
	"github.com/vietddude/flowpanel/internal/core/worker"
	"github.com/vietddude/flowpanel/internal/health"
	"github.com/vietddude/flowpanel/internal/infra/flow"
	redisclient "github.com/vietddude/flowpanel/internal/infra/redis"
	"github.com/vietddude/flowpanel/internal/infra/storage"
	"github.com/vietddude/flowpanel/internal/infra/storage/memory"
	"github.com/vietddude/flowpanel/internal/infra/storage/postgres"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// App is the main application struct that owns every component.
type App struct {
	cfg *config.AppConfig

	coord       *network.Coordinator
	flowClient  *flow.Client
	submitter   *flow.Submitter
	accounts    *account.Service
	tracker     *txtracker.Tracker
	history     storage.TransferRepository
	pruner      *worker.Pruner
	store       *memory.MemoryStorage
	db          *postgres.DB
	redisClient *redisclient.Client
	healthMon   *health.Monitor
	apiServer   *api.Server
	grpcServer  *api.GRPCServer
	log         *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default().With("component", "app")}

	// 1. Initialize Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		a.db = db
		a.history = postgres.NewTransferRepo(db)
		a.log.Info("Using PostgreSQL storage")
	} else {
		a.store = memory.NewMemoryStorage()
		a.history = memory.NewTransferRepo(a.store)
		a.log.Info("Using Memory storage")
	}

	a.pruner = worker.NewPruner(cfg.History.Retention, a.history, slog.Default())

	// 2. Optional summary cache
	var cache account.Cache
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		cache = redisclient.NewSummaryCache(client, cfg.Redis.SummaryTTL)
		a.log.Info("Using Redis summary cache", "ttl", cfg.Redis.SummaryTTL)
	}

	// 3. Network coordination and the access client
	configs := cfg.NetworkConfigs()
	a.flowClient = flow.NewClient(cfg.Seal.RequestTimeout, slog.Default())
	a.coord = network.NewCoordinator(configs, flow.NewChainProbe(a.flowClient), slog.Default())
	a.coord.SetSwitchCallback(func(from, to domain.NetworkID) {
		a.log.Info("Active network changed", "from", from, "to", to)
	})

	a.accounts = account.NewService(a.coord, flow.NewAccountQuery(a.flowClient), cache, slog.Default())

	// 4. Transfers
	a.submitter = flow.NewSubmitter(flow.NewClient(cfg.Submission.Timeout, slog.Default()), cfg.Submission.URL, configs)
	if cfg.Submission.URL == "" {
		a.log.Warn("No submission gateway configured, transfers are disabled")
	}
	waiter := flow.NewSealPoller(a.flowClient, configs, cfg.Seal.PollInterval)
	a.tracker = txtracker.New(txtracker.Config{
		Submitter:   a.submitter,
		Waiter:      waiter,
		History:     a.history,
		Dwell:       cfg.Transfer.DwellInterval,
		SealTimeout: cfg.Seal.Timeout,
		Logger:      slog.Default(),
	})
	a.tracker.SetChangeCallback(func(rec domain.TransactionRecord) {
		// Runs under the tracker lock.
		if txtracker.IsSealed(rec.State) {
			go a.refreshBalances(rec.ID)
		}
	})

	// 5. Health and servers
	a.healthMon = health.NewMonitor(a.activeNetwork, a.healthChecks()...)
	a.apiServer = api.NewServer(api.Deps{
		Accounts:       a.accounts,
		Tracker:        a.tracker,
		History:        a.history,
		Monitor:        a.healthMon,
		StrictReceiver: cfg.Transfer.StrictReceiver,
		Logger:         slog.Default(),
	}, cfg.Server.Port)
	if cfg.Server.GRPCPort > 0 {
		a.grpcServer = api.NewGRPCServer(a.healthMon, cfg.Server.GRPCPort, slog.Default())
	}

	return a, nil
}

// Coordinator returns the network coordinator.
func (a *App) Coordinator() *network.Coordinator { return a.coord }

// Accounts returns the account service.
func (a *App) Accounts() *account.Service { return a.accounts }

// Tracker returns the transaction tracker.
func (a *App) Tracker() *txtracker.Tracker { return a.tracker }

// History returns the transfer history repository.
func (a *App) History() storage.TransferRepository { return a.history }

// ActivateInitial switches to the configured network. Failure is logged; the
// network is activated again on first use.
func (a *App) ActivateInitial(ctx context.Context) {
	net := domain.ParseNetworkID(a.cfg.Network)
	if _, err := a.coord.Activate(ctx, net); err != nil {
		a.log.Warn("Initial network activation failed", "network", net, "error", err)
	}
}

// Start runs the servers until ctx is cancelled or one of them fails.
func (a *App) Start(ctx context.Context) error {
	a.ActivateInitial(ctx)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
	go a.pruner.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.grpcServer != nil {
		g.Go(func() error {
			return a.grpcServer.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if a.grpcServer != nil {
			a.grpcServer.Stop()
		}
		return a.apiServer.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop releases every resource.
func (a *App) Stop() {
	a.tracker.Close()
	_ = a.flowClient.Close()
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	a.closeStores()
	a.log.Info("Stopped")
}

func (a *App) closeStores() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) activeNetwork() string {
	snap, ok := a.coord.Active()
	if !ok {
		return ""
	}
	return string(snap.Network())
}

// refreshBalances drops cached summaries touched by a sealed transaction.
func (a *App) refreshBalances(txID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := a.history.GetByTransactionID(ctx, txID)
	if err != nil || rec == nil {
		return
	}
	a.accounts.Invalidate(ctx, rec.Sender)
	for _, r := range rec.Receivers {
		a.accounts.Invalidate(ctx, r)
	}
}

func (a *App) healthChecks() []health.Check {
	probe := flow.NewChainProbe(a.flowClient)
	checks := []health.Check{{
		Name: "access_node",
		Fn: func(ctx context.Context) error {
			snap, ok := a.coord.Active()
			if !ok {
				return nil
			}
			return probe.Reconfigure(ctx, snap.Config)
		},
	}}
	if a.db != nil {
		checks = append(checks, health.Check{Name: "database", Critical: true, Fn: a.db.Health})
	}
	if a.redisClient != nil {
		checks = append(checks, health.Check{Name: "redis", Fn: a.redisClient.Health})
	}
	return checks
}
