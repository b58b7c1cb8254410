package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" // profiling endpoints, gated behind --enable-pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/aifs/pkg/api"
	"github.com/cuemby/aifs/pkg/config"
	"github.com/cuemby/aifs/pkg/log"
	"github.com/cuemby/aifs/pkg/manager"
	"github.com/cuemby/aifs/pkg/metrics"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aifs-server",
	Short: "aifs-server runs the AI-Native File System storage engine",
	Long: `aifs-server is the AIFS daemon: a content-addressed, versioned,
encrypted asset store with a built-in vector index, served over a
capability-token-authenticated RPC surface and a plain-HTTP health/metrics
surface, as a single process with no external dependencies.`,
	Version: Version,
	RunE:    runServer,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"aifs-server version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("config", "", "Path to a YAML config file (optional)")
	rootCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().String("rpc-addr", "", "RPC listen address (overrides config)")
	rootCmd.Flags().String("health-addr", "", "Health/metrics listen address (overrides config)")
	rootCmd.Flags().Bool("strong-causality", false, "Hide assets whose parent dependencies are not yet visible")
	rootCmd.Flags().Bool("enable-pprof", false, "Enable pprof profiling endpoints on a separate listener at 127.0.0.1:6060")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.RootDir = v
	}
	if v, _ := cmd.Flags().GetString("rpc-addr"); v != "" {
		cfg.RPCAddr = v
	}
	if v, _ := cmd.Flags().GetString("health-addr"); v != "" {
		cfg.HealthAddr = v
	}
	if v, _ := cmd.Flags().GetBool("strong-causality"); v {
		cfg.EnableStrongCausality = v
	}

	masterKey, err := cfg.MasterKey()
	if err != nil {
		return fmt.Errorf("kms master key: %w", err)
	}

	log.Logger.Info().Str("data_dir", cfg.RootDir).Msg("starting aifs-server")

	mgr, err := manager.NewAssetManager(&manager.Config{
		DataDir:          cfg.RootDir,
		VectorDimension:  cfg.EmbeddingDim,
		CompressionLevel: cfg.CompressionLevel,
		KMSMasterKey:     masterKey,
		StrongCausality:  cfg.EnableStrongCausality,
	})
	if err != nil {
		return fmt.Errorf("create asset manager: %w", err)
	}

	tokens, err := manager.NewTokenManager()
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	collector := manager.NewMetricsCollector(mgr)
	collector.Start()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "ready")
	metrics.RegisterComponent("chunkstore", true, "ready")
	metrics.RegisterComponent("kms", true, "ready")

	healthServer := api.NewHealthServer(mgr, Version)
	healthErrCh := make(chan error, 1)
	go func() {
		if err := healthServer.Start(cfg.HealthAddr); err != nil && err != http.ErrServerClosed {
			healthErrCh <- fmt.Errorf("health server error: %w", err)
		}
	}()
	fmt.Printf("Health/metrics endpoints: http://%s/{health,ready,live,version,metrics,metrics/otel}\n", cfg.HealthAddr)

	if enabled, _ := cmd.Flags().GetBool("enable-pprof"); enabled {
		pprofAddr := "127.0.0.1:6060"
		go func() {
			_ = http.ListenAndServe(pprofAddr, nil)
		}()
		fmt.Printf("Profiling endpoints enabled at http://%s/debug/pprof/\n", pprofAddr)
	}

	rpcServer := api.NewServer(mgr, tokens, Version)
	rpcErrCh := make(chan error, 1)
	go func() {
		if err := rpcServer.Start(cfg.RPCAddr); err != nil {
			rpcErrCh <- fmt.Errorf("rpc server error: %w", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	fmt.Printf("AIFS RPC listening on %s\n", cfg.RPCAddr)
	fmt.Println("aifs-server is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-rpcErrCh:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	case err := <-healthErrCh:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	}

	rpcServer.Stop()
	collector.Stop()
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	fmt.Println("Shutdown complete")
	return nil
}
