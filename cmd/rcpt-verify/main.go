package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/admin"
	"github.com/cloudwishcom/rcpt-verify/internal/core"
	"github.com/cloudwishcom/rcpt-verify/internal/di"
	"github.com/cloudwishcom/rcpt-verify/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	mailGateway ports.MailGateway,
	adminServer *admin.Server,
	auditSink core.AuditSink,
	cacheRepo core.VerificationCache,
) error {
	defer logger.Sync()

	// Start the gateway
	if err := mailGateway.Start(); err != nil {
		logger.Fatal("Failed to start gateway", zap.Error(err))
		return err
	}

	// Start the admin server
	if err := adminServer.Start(); err != nil {
		logger.Fatal("Failed to start admin server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the gateway
	if err := mailGateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway", zap.Error(err))
	}

	// Stop the admin server
	if err := adminServer.Stop(); err != nil {
		logger.Error("Failed to stop admin server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := auditSink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close audit sink", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
