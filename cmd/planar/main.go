package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/planarhq/planar/pkg/api"
	"github.com/planarhq/planar/pkg/audit"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/config"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/storage/avatars"
	"github.com/planarhq/planar/pkg/storage/postgres"
	"github.com/planarhq/planar/pkg/teams"
	"github.com/planarhq/planar/pkg/users"
	"github.com/planarhq/planar/pkg/workspaces"
)

// expiredInvitationGrace is how long past expiry an invitation row is kept
// before the sweep collects it. Expiry itself is enforced lazily at read
// and claim time.
const expiredInvitationGrace = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "planar: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to shut down tracing")
		}
	}()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}

	userStore := users.NewPostgresStore(db)
	workspaceService := workspaces.NewPostgresService(db)
	teamService := teams.NewPostgresService(db)

	hasher := auth.NewPasswordHasher()
	codec := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret))
	authService := auth.NewService(userStore, hasher, codec,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger, metrics)

	guards := rbac.NewGuards(workspaceService, teamService)

	var avatarStore *avatars.Store
	if cfg.Avatars.Enabled {
		avatarStore, err = avatars.NewStore(ctx, cfg.Avatars)
		if err != nil {
			return err
		}
	}

	var (
		auditSink  audit.Logger
		auditStore *audit.DBLogger
	)
	if cfg.Audit.Enabled {
		auditStore = audit.NewDBLogger(db)
		if cfg.Audit.FilePath != "" {
			fileSink, err := audit.NewFileLogger(cfg.Audit.FilePath)
			if err != nil {
				return err
			}
			multi := audit.NewMultiLogger(auditStore, fileSink)
			defer multi.Close()
			auditSink = multi
		} else {
			auditSink = auditStore
		}
	}

	server := api.NewServer(cfg.Server, api.Deps{
		AuthService:      authService,
		UserStore:        userStore,
		WorkspaceService: workspaceService,
		TeamService:      teamService,
		Guards:           guards,
		AvatarStore:      avatarStore,
		AuditSink:        auditSink,
		AuditStore:       auditStore,
		Logger:           logger,
		Metrics:          metrics,
		TracingEnabled:   cfg.Observability.OTelEnabled,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.ListenAndServe(groupCtx)
	})

	group.Go(func() error {
		return runHealthServer(groupCtx, cfg.Server, db, metrics, logger)
	})

	group.Go(func() error {
		return runInvitationSweep(groupCtx, workspaceService, logger)
	})

	logger.Info("planar started")
	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("planar stopped")
	return nil
}

// runHealthServer serves the liveness, readiness, and metrics endpoints on
// a separate port so probes and scrapes never contend with API traffic.
func runHealthServer(ctx context.Context, cfg config.ServerConfig, db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) error {
	checker := observability.NewHealthChecker(db)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.HealthPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runInvitationSweep schedules the hourly deletion of long-expired
// invitation rows.
func runInvitationSweep(ctx context.Context, workspaceService workspaces.Service, logger *observability.Logger) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc("@hourly", func() {
		sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		cutoff := time.Now().Add(-expiredInvitationGrace)
		deleted, err := workspaceService.DeleteInvitationsExpiredBefore(sweepCtx, cutoff)
		if err != nil {
			logger.WithError(err).Error("invitation sweep failed")
			return
		}
		if deleted > 0 {
			logger.WithField("deleted", deleted).Info("swept expired invitations")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule invitation sweep: %w", err)
	}

	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return nil
}
