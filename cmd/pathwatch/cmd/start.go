package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pathwatch/pathwatch/internal/app"
	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	watchRoots []string
	port       int
	maxDepth   int
	noServer   bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pathwatch daemon",
	Long: `Start the pathwatch daemon to begin monitoring configured roots
and streaming change events to connected clients.

Roots are normally declared in the config file, where each root can set
its own recursion depth, include patterns and event filter. Roots given
with --root on the command line are added on top with default settings.

Example:
  pathwatch start                        # Watch roots from config file
  pathwatch start --root /tmp/project    # Add a root ad hoc
  pathwatch start --port 9000            # Custom WebSocket port
  pathwatch start --no-server            # Journal only, no WebSocket`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringArrayVar(&watchRoots, "root", nil, "directory root to watch (repeatable, default: from config)")
	startCmd.Flags().IntVar(&port, "port", 0, "WebSocket server port (default: 8765)")
	startCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "recursion depth for roots added via --root (0 = unlimited)")
	startCmd.Flags().BoolVar(&noServer, "no-server", false, "disable the WebSocket event server")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if port != 0 {
		cfg.Server.Port = port
	}
	if noServer {
		cfg.Server.Enabled = false
	}
	for _, root := range watchRoots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		cfg.Roots = append(cfg.Roots, config.RootConfig{
			Path:     absRoot,
			MaxDepth: maxDepth,
		})
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(cfg.Roots) == 0 {
		return fmt.Errorf("no watch roots configured; declare them in the config file or pass --root")
	}

	// Setup logging
	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Int("roots", len(cfg.Roots)).
		Bool("server", cfg.Server.Enabled).
		Int("port", cfg.Server.Port).
		Msg("starting pathwatch")

	// Create application
	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	// Start the application
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("pathwatch stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func setupLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Add verbose logging if flag is set
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Server Enabled:  %t\n", cfg.Server.Enabled)
	fmt.Printf("Host:            %s\n", cfg.Server.Host)
	fmt.Printf("Port:            %d\n", cfg.Server.Port)
	fmt.Printf("Settle Delay:    %dms\n", cfg.Watcher.SettleMS)
	fmt.Printf("Journal Enabled: %t\n", cfg.Journal.Enabled)
	fmt.Printf("Log Level:       %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:      %s\n", cfg.Logging.Format)
	if len(cfg.Roots) == 0 {
		fmt.Println("Roots:           (none)")
		return
	}
	fmt.Println("Roots:")
	for _, root := range cfg.Roots {
		depth := "unlimited"
		if root.MaxDepth > 0 {
			depth = fmt.Sprintf("%d", root.MaxDepth)
		}
		fmt.Printf("  - %s (depth: %s)\n", root.Path, depth)
	}
}
