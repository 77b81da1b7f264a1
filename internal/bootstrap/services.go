package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/adapters/sweeper"
	"github.com/civicline/civicline-api/internal/data"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
	"github.com/civicline/civicline-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth        *service.AuthService
	Complaints  *service.ComplaintService
	Users       *service.UserAdminService
	Authorizer  *service.Authorizer
	RateLimiter *service.RateLimitService

	RateLimitStore ports.RateLimitStore
	Publisher      ports.EventPublisher
	Metrics        *metrics.Registry
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Optional: a registry shared with the caller. A new one is created when nil.
	Metrics *metrics.Registry
}

// NewServices wires repositories, adapters and domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	cfg := deps.Config

	security, err := BuildSecurity(cfg.Auth)
	if err != nil {
		return ServiceContainer{}, err
	}

	store, err := BuildRateLimitStore(RateLimitStoreConfig{
		RateLimit:   cfg.RateLimit,
		Redis:       cfg.Redis,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build rate limit store: %w", err)
	}

	publisher, err := BuildEventPublisher(cfg.Observability.Relay, reg, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	users := data.NewUserRepo(deps.DB)
	complaints := data.NewComplaintRepo(deps.DB)

	limiter, err := service.NewRateLimitService(service.RateLimitServiceOptions{
		Store:   store,
		Config:  cfg.RateLimit,
		Logger:  logger,
		Metrics: reg,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create rate limit service: %w", err)
	}

	authSvc, err := service.NewAuthService(service.AuthServiceOptions{
		Accounts: users,
		Security: security,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  reg,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create auth service: %w", err)
	}

	authorizer, err := service.NewAuthorizer(security.Codec)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create authorizer: %w", err)
	}

	complaintSvc, err := service.NewComplaintService(service.ComplaintServiceOptions{
		Repo:      complaints,
		Accounts:  users,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create complaint service: %w", err)
	}

	userSvc, err := service.NewUserAdminService(service.UserAdminServiceOptions{
		Accounts: users,
		Hasher:   security.Hasher,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create user admin service: %w", err)
	}

	return ServiceContainer{
		Auth:           authSvc,
		Complaints:     complaintSvc,
		Users:          userSvc,
		Authorizer:     authorizer,
		RateLimiter:    limiter,
		RateLimitStore: store,
		Publisher:      publisher,
		Metrics:        reg,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

// SweeperConfig contains configuration for the rate limit sweeper.
type SweeperConfig struct {
	DB      *sql.DB
	Store   ports.RateLimitStore
	Config  config.RateLimitConfig
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// RunSweeper starts the rate limit sweeper loop.
func RunSweeper(ctx context.Context, cfg SweeperConfig) error {
	runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
		DB:      cfg.DB,
		Store:   cfg.Store,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create sweeper runner: %w", err)
	}

	return runner.Run(ctx)
}

func newSweeperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeRateLimitSweeper,
		name: "rate limit sweeper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var rlCfg config.RateLimitConfig
			if deps.cfg.Config != nil {
				rlCfg = deps.cfg.Config.RateLimit
			}
			return RunSweeper(ctx, SweeperConfig{
				DB:      deps.cfg.DB,
				Store:   deps.cfg.Services.RateLimitStore,
				Config:  rlCfg,
				Logger:  deps.logger,
				Metrics: deps.cfg.Services.Metrics,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newSweeperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return waitForShutdown(quit, shutdownConfig{
		ctx:             serviceCtx,
		cancel:          cancel,
		errCh:           errCh,
		httpServer:      result.HTTPServer,
		shutdownTimeout: cfg.Config.HTTP.ShutdownTimeout,
		publisher:       cfg.Services.Publisher,
		logger:          logger,
		backgrounds:     result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// drainer is implemented by publishers that deliver asynchronously.
type drainer interface {
	Wait(ctx context.Context) error
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx             context.Context
	cancel          context.CancelFunc
	errCh           <-chan error
	httpServer      *http.Server
	shutdownTimeout time.Duration
	publisher       ports.EventPublisher
	logger          *slog.Logger
	backgrounds     []backgroundServiceHandle
}

// waitForShutdown waits for a shutdown signal or service error.
func waitForShutdown(quit <-chan os.Signal, cfg shutdownConfig) error {
	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, waits for background services and
// then drains pending relay deliveries.
func gracefulStop(cfg shutdownConfig) error {
	// The service context is already cancelled here.
	base := context.WithoutCancel(cfg.ctx)

	var errs []error
	if cfg.httpServer != nil {
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: base,
			Server:  cfg.httpServer,
			Timeout: cfg.shutdownTimeout,
			Logger:  cfg.logger,
		}); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if d, ok := cfg.publisher.(drainer); ok {
		drainCtx, cancel := context.WithTimeout(base, shutdownWaitTimeout)
		defer cancel()
		if err := d.Wait(drainCtx); err != nil {
			cfg.logger.Warn("relay deliveries still pending at shutdown", "error", err)
		}
	}

	return errors.Join(errs...)
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
