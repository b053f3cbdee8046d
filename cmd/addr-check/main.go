package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
	"github.com/cloudwishcom/rcpt-verify/internal/di"
)

func main() {
	flags := di.ParseFlags()

	if flags.Address == "" {
		fmt.Println("No address specified: pass -address or a positional argument")
		os.Exit(1)
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the check
	if err := container.Invoke(runCheck); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// runCheck verifies a single address and prints the outcome
func runCheck(logger *zap.Logger, service *core.VerifierService, flags *di.CLIFlags) error {
	defer logger.Sync()

	address := core.NormalizeAddress(flags.Address)

	// Print address summary
	fmt.Printf("\n=== Address ===\n")
	fmt.Printf("Address: %s\n", address)

	fmt.Printf("\n=== Verification ===\n")
	fmt.Printf("API URL: %s\n", flags.APIURL)
	fmt.Printf("Timeout: %s\n", flags.Timeout)
	fmt.Printf("Block undeliverable: %t\n", flags.BlockUndeliverable)
	fmt.Printf("Block disposable: %t\n", flags.BlockDisposable)
	fmt.Printf("Block risky: %t\n", flags.BlockRisky)

	startTime := time.Now()
	result := service.Verify(context.Background(), address)
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Classification: %s\n", result.Classification)
	fmt.Printf("Decision: %s\n", result.Decision)
	if result.Reason != "" {
		fmt.Printf("Reason: %s\n", result.Reason)
	}
	fmt.Printf("Score: %d\n", result.Score)
	fmt.Printf("Source: %s\n", result.Source)
	fmt.Printf("Disposable: %t\n", result.Disposable)
	fmt.Printf("Role-based: %t\n", result.RoleBased)
	fmt.Printf("Catch-all: %t\n", result.CatchAll)
	fmt.Printf("Reachable: %s\n", result.Reachable)
	fmt.Printf("Free provider: %t\n", result.Free)
	if result.SMTPCode != 0 {
		fmt.Printf("SMTP code: %d\n", result.SMTPCode)
	}
	fmt.Printf("Verification time: %dms\n", result.DurationMS)
	fmt.Printf("Processing time: %v\n", duration)

	return nil
}
