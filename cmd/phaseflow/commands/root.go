package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valksor/go-phaseflow/internal/conductor"
	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/log"
)

var (
	// Global flags.
	verbose    bool
	noColor    bool
	configPath string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "phaseflow",
	Short: "Phase-based delivery workflow for coding agents",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Long: `Phaseflow walks a coding agent through a fixed sequence of delivery
phases: API contract, domain policy, frontend, server core, server
implementation, infrastructure and end-to-end tests.

The agent registers requirements, sets tasks per phase and marks them done.
Finishing the last task of a phase advances to the next one and hands back
a briefing built from git history, the open pull request and the runbooks.

Quick Start:
  phaseflow serve        Expose the workflow tool over MCP stdio
  phaseflow session      Drive the workflow with JSON lines on stdin
  phaseflow phases       Show the phase catalogue
  phaseflow context      Print the briefing for this checkout`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Configure(log.Options{
			Verbose: verbose,
		})

		// Also respects NO_COLOR
		display.InitColors(noColor)

		log.Debug("initialized", "verbose", verbose, "dir", workDir)
		return nil
	},
}

// Execute runs the root command with signal handling.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}

// newConductor builds the component graph for the --dir and --config flags
// and applies the logging section of the loaded configuration.
func newConductor(ctx context.Context, extra ...conductor.Option) (*conductor.Conductor, error) {
	opts := append([]conductor.Option{
		conductor.WithWorkDir(workDir),
		conductor.WithConfigPath(configPath),
	}, extra...)

	c, err := conductor.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	cfg := c.Config()
	if cfg.Log.JSON || cfg.Log.Verbose {
		log.Configure(log.Options{
			JSON:    cfg.Log.JSON,
			Verbose: verbose || cfg.Log.Verbose,
		})
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <dir>/.phaseflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "Project directory")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "workflow",
		Title: "Workflow Commands:",
	}, &cobra.Group{
		ID:    "info",
		Title: "Information Commands:",
	})
}
