package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/diagnosis-dispatcher/internal/classifier"
	"github.com/Skufu/diagnosis-dispatcher/internal/config"
	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
	"github.com/Skufu/diagnosis-dispatcher/internal/history"
	"github.com/Skufu/diagnosis-dispatcher/internal/logging"
	"github.com/Skufu/diagnosis-dispatcher/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "diagnosis-dispatcher",
		Short:        "Disease prediction forms backed by pre-trained classifiers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "Path to YAML config file (default "+config.DefaultPath+" if present)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCategoriesCmd())
	root.AddCommand(newDescribeCmd())
	root.AddCommand(newPredictCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// loadConfig reads --config when given; otherwise the default path is
// optional.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path, true)
	}
	return config.Load(config.DefaultPath, false)
}

// buildDispatcher loads every model artifact and never fails because a
// single category is unavailable.
func buildDispatcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*diagnosis.Dispatcher, error) {
	loader := classifier.NewFileLoader(cfg.Models.Dir)
	reg, err := diagnosis.NewRegistry(ctx, diagnosis.DefaultCatalog(), loader, cfg.Models.Artifacts, logger)
	if err != nil {
		return nil, err
	}
	return diagnosis.NewDispatcher(reg, diagnosis.WithTimeout(cfg.Models.InferenceTimeout)), nil
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	dispatcher, err := buildDispatcher(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build registry", zap.Error(err))
		return err
	}
	if dispatcher.Registry().AvailableCount() == 0 {
		logger.Warn("No models loaded; predictions will report unavailable", zap.String("models_dir", cfg.Models.Dir))
	}

	var store history.Store
	if cfg.History.Enabled {
		if cfg.History.Driver == history.DriverSQLite {
			if err := ensureParentDir(cfg.History.URL); err != nil {
				return err
			}
		}
		store, err = history.Open(ctx, cfg.History.Driver, cfg.History.URL)
		if err != nil {
			logger.Error("History store connection failed", zap.String("driver", cfg.History.Driver), zap.Error(err))
			return err
		}
		defer store.Close()
		logger.Info("Prediction history enabled", zap.String("driver", cfg.History.Driver))
	}

	staticRoot := cfg.Server.StaticRoot
	if staticRoot == "" {
		staticRoot = server.DetectStaticRoot()
	}
	router := server.NewRouter(dispatcher, logger, server.Options{
		StaticRoot:   staticRoot,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		History:      store,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Server listening",
		zap.String("port", cfg.Server.Port),
		zap.Int("models_available", dispatcher.Registry().AvailableCount()))
	return waitForShutdown(srv, errCh, logger)
}

func waitForShutdown(srv *http.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		logger.Error("Server error", zap.Error(err))
		return err
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("Server exited")
	return nil
}
