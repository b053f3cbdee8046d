package di

import (
	"flag"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/adapters/verifyapi"
	"github.com/cloudwishcom/rcpt-verify/internal/config"
	"github.com/cloudwishcom/rcpt-verify/internal/core"
	"github.com/cloudwishcom/rcpt-verify/internal/logging"
	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Verification API flags
	APIURL             string
	APIKey             string
	Timeout            string
	BlockUndeliverable bool
	BlockDisposable    bool
	BlockRisky         bool

	// Input flags
	Address    string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Verification API flags
	flag.StringVar(&flags.APIURL, "api-url", "", "Verification API base URL")
	flag.StringVar(&flags.APIKey, "api-key", "", "Verification API key")
	flag.StringVar(&flags.Timeout, "timeout", "5s", "Verification API timeout")
	flag.BoolVar(&flags.BlockUndeliverable, "block-undeliverable", true, "Request blocking of undeliverable addresses")
	flag.BoolVar(&flags.BlockDisposable, "block-disposable", true, "Request blocking of disposable addresses")
	flag.BoolVar(&flags.BlockRisky, "block-risky", false, "Request blocking of risky addresses")

	// Input flags
	flag.StringVar(&flags.Address, "address", "", "Email address to verify (first positional argument if omitted)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()

	if flags.Address == "" && flag.NArg() > 0 {
		flags.Address = flag.Arg(0)
	}

	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register metrics registry
	if err := container.Provide(metrics.NewRegistry); err != nil {
		return nil, err
	}

	// Register verifier service with no cache
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		registry *metrics.Registry,
	) (*core.VerifierService, error) {
		verifierCfg := cfg.GetVerifier()
		if verifierCfg.APIURL == "" || verifierCfg.APIKey == "" {
			return nil, fmt.Errorf("verifier.api_url and verifier.api_key are required")
		}

		timeout, err := cfg.GetDuration("verifier.api_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid API timeout: %w", err)
		}

		client, err := verifyapi.NewClient(
			verifierCfg.APIURL,
			verifierCfg.APIKey,
			core.Policy{
				BlockUndeliverable: verifierCfg.BlockUndeliverable,
				BlockDisposable:    verifierCfg.BlockDisposable,
				BlockRisky:         verifierCfg.BlockRisky,
			},
			timeout,
			logger,
		)
		if err != nil {
			return nil, err
		}

		return core.NewVerifierService(
			client,
			nil, // No cache for one-shot checks
			logger,
			registry,
			false, // Cache disabled
			core.DefaultTTLTable(),
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("verifier.api_url", flags.APIURL)
	v.Set("verifier.api_key", flags.APIKey)
	v.Set("verifier.api_timeout", flags.Timeout)
	v.Set("verifier.block_undeliverable", flags.BlockUndeliverable)
	v.Set("verifier.block_disposable", flags.BlockDisposable)
	v.Set("verifier.block_risky", flags.BlockRisky)

	return config.NewFromViper(v)
}
