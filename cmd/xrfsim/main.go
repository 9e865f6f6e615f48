// Command xrfsim renders XMI-MSIM input decks, runs the simulator and counts
// photons in the resulting spectra.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/ledger"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/version"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

// app carries state shared by every subcommand.
type app struct {
	verbose    bool
	ledgerPath string

	logger *zap.Logger
	store  artifact.Store
	// opts are applied to every model after the deck's own runner.
	opts []xmimsim.Option
}

func newApp() *app {
	return &app{store: artifact.OSStore{}}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "xrfsim",
		Short:         "Drive XMI-MSIM X-ray fluorescence simulations",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.ledgerPath, "ledger", ledger.DefaultPath, "run ledger database (empty disables recording)")

	root.AddCommand(
		newRunCmd(a),
		newRenderCmd(a),
		newCountCmd(a),
		newPlotCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newBatchCmd(a),
		newRTPCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) setupLogging() error {
	if a.logger == nil {
		cfg := zap.NewProductionConfig()
		if a.verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		logger, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}
	sugar := a.logger.Sugar()
	monitoring.SetLogger(sugar.Infof)
	monitoring.SetDebugLogger(sugar.Debugf)
	return nil
}

// openLedger returns nil when recording is disabled.
func (a *app) openLedger() (*ledger.Ledger, error) {
	if a.ledgerPath == "" {
		return nil, nil
	}
	l, err := ledger.Open(a.ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, nil
}

func (a *app) requireLedger() (*ledger.Ledger, error) {
	if a.ledgerPath == "" {
		return nil, fmt.Errorf("this command needs a ledger; set --ledger")
	}
	return a.openLedger()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
