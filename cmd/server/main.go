// Command graph-connector serves the Meta Graph API connector.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/graph-connector/internal/config"
	"github.com/and161185/graph-connector/internal/graph"
	"github.com/and161185/graph-connector/internal/migrate"
	"github.com/and161185/graph-connector/internal/repository/postgres"
	httpserver "github.com/and161185/graph-connector/internal/server/http"
	"github.com/and161185/graph-connector/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "graph-connector",
		Short:        "OAuth connector for Facebook Pages, Instagram and WhatsApp Business",
		Version:      fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Dev)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if !cfg.Dev {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := config.LoadDSN(cmd.Flags())
			if err != nil {
				return err
			}
			return migrate.Up(cmd.Context(), dsn)
		},
	}
	cmd.Flags().String("dsn", "", "PostgreSQL DSN (env DATABASE_URL)")
	return cmd
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// serve runs migrations, wires repositories into services and serves until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("api_version", cfg.APIVersion),
	)

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Repositories
	accounts := postgres.NewAccountRepo(db)
	pages := postgres.NewPageRepo(db)

	// Services
	gc := graph.New(cfg.GraphBaseURL, cfg.APIVersion, http.DefaultClient)
	authFlow := service.NewAuthFlow(cfg, service.NewStateSigner([]byte(cfg.AppSecret), cfg.StateTTL))
	discovery := service.NewDiscovery(cfg, gc, accounts, pages, logger)
	messaging := service.NewMessaging(gc, accounts, pages, cfg.TestMessage, logger)

	cookie := httpserver.StateCookie{
		TTL:    cfg.StateTTL,
		Secure: strings.HasPrefix(cfg.RedirectURI, "https://"),
	}
	router, err := httpserver.New(authFlow, discovery, messaging, db, cookie, logger).Router()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown timed out", zap.Error(err))
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
