package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/config"
	"github.com/ifuryst/publish-studio/internal/server"
	"github.com/ifuryst/publish-studio/internal/service"
	"github.com/ifuryst/publish-studio/pkg/logger"
)

var (
	configPath string
	keepDays   int
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "publish-studio",
	Short: "Publish Studio - Multi-platform publishing service",
	Long:  `Publish Studio publishes one project to DevTo, Medium, Hashnode, Ghost, WordPress and Blogger, now or on a schedule.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		_ = godotenv.Load()
	},
	RunE: runServer,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduled publish consumer without the HTTP API",
	RunE:  runWorker,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete error logs older than --days",
	RunE:  runCleanup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Publish Studio %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	cleanupCmd.Flags().IntVar(&keepDays, "days", 30, "days of error logs to keep")
	rootCmd.AddCommand(workerCmd, cleanupCmd, versionCmd)
}

func setup() (*config.Config, *zap.Logger, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, appLogger, nil
}

func runServer(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Publish Studio server", zap.String("version", version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create server
	srv, err := server.NewServer(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(context.Background()); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func runWorker(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := service.NewContainer(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer container.Close()

	consumer := container.NewConsumer()
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	appLogger.Info("Worker started", zap.String("version", version))

	<-ctx.Done()
	appLogger.Info("Shutting down worker...")
	consumer.Stop()
	return nil
}

func runCleanup(*cobra.Command, []string) error {
	if keepDays <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx := context.Background()
	container, err := service.NewContainer(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer container.Close()

	removed, err := container.Monitoring.CleanupOldData(ctx, keepDays)
	if err != nil {
		return fmt.Errorf("failed to clean up error logs: %w", err)
	}
	appLogger.Info("Error logs cleaned up", zap.Int64("removed", removed), zap.Int("days", keepDays))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
