package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/config"
	"github.com/veridianlabs/switchyard/pkg/loader"
	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/metrics"
	"github.com/veridianlabs/switchyard/pkg/supervisor"
	"github.com/veridianlabs/switchyard/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Switchyard - Blue/green deployment supervisor for multi-tenant graph databases",
	Long: `Switchyard watches a shared filesystem for tenant snapshots, loads each
one into an isolated graph database, and atomically switches a stable
per-tenant alias onto the newest deployment. Old databases are retired
by a retention policy, so readers addressing the alias never see
downtime during a cutover.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Switchyard version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(databasesCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig loads the config file and initializes logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	return cfg, nil
}

func openCatalog(cfg *config.Config) (*catalog.Bolt, error) {
	return catalog.NewBolt(catalog.Config{
		URI:      cfg.Graph.BoltURI(),
		User:     cfg.Graph.User,
		Password: cfg.Graph.Password,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the deployment supervisor",
	Long: `Run the supervisor: watch the snapshot root, load new snapshots into
timestamped databases, switch aliases to the latest deployment, and
retire databases beyond the retention cap.

The first interrupt starts a graceful shutdown: in-flight loads finish
within the shutdown timeout and queued work is discarded. A second
interrupt exits immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Supervisor.Workers = workers
		}
		if interval, _ := cmd.Flags().GetInt("scan-interval"); interval > 0 {
			cfg.Supervisor.ScanIntervalSeconds = interval
		}

		cat, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		ld, err := loader.NewBolt(loader.Config{
			URI:      cfg.Graph.BoltURI(),
			User:     cfg.Graph.User,
			Password: cfg.Graph.Password,
		}, cat)
		if err != nil {
			return err
		}

		sup, err := supervisor.New(cfg, cat, ld)
		if err != nil {
			return err
		}

		var metricsServer *metrics.Server
		if cfg.Metrics.ListenAddr != "" {
			metricsServer = metrics.NewServer(cfg.Metrics.ListenAddr, func() (string, bool) {
				state := sup.State()
				return string(state), state == types.SupervisorStateRunning
			})
			metricsServer.Start()
		}

		sup.Start()

		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		<-sigCh
		log.Info("Shutdown signal received")

		done := make(chan struct{})
		go func() {
			sup.Stop()
			if metricsServer != nil {
				metricsServer.Stop()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-sigCh:
			log.Warn("Second signal received, exiting immediately")
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Int("workers", 0, "Override the worker pool size")
	runCmd.Flags().Int("scan-interval", 0, "Override the scan interval (seconds)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the supervisor status file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := supervisor.ReadStatusFile(cfg.Supervisor.StatusFile)
		if err != nil {
			return err
		}

		fmt.Printf("Status:           %s\n", status.Status)
		fmt.Printf("Uptime:           %ds\n", status.UptimeSeconds)
		fmt.Printf("Workers:          %d\n", status.Workers)
		fmt.Printf("Scan interval:    %ds\n", status.ScanInterval)
		fmt.Printf("Data path:        %s\n", status.DataPath)
		fmt.Printf("Queue size:       %d\n", status.QueueSize)
		fmt.Printf("Tasks discovered: %d\n", status.TasksDiscovered)
		fmt.Printf("Tasks completed:  %d\n", status.TasksCompleted)
		fmt.Printf("Tasks failed:     %d\n", status.TasksFailed)
		fmt.Printf("Tasks retried:    %d\n", status.TasksRetried)
		fmt.Printf("Success rate:     %.1f%%\n", status.SuccessRate)
		if status.LastActivity != "" {
			fmt.Printf("Last activity:    %s\n", status.LastActivity)
		}
		return nil
	},
}
