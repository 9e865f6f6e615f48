package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/xrfsim/internal/batch"
	"github.com/banshee-data/xrfsim/internal/ledger"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/watch"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

func newWatchCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "watch <deck>...",
		Short: "Recalculate decks whenever they change on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			handle := func(ctx context.Context, path string) error {
				c, run, err := a.runOne(ctx, cmd, &f, path)
				if err != nil {
					return err
				}
				return printSummary(out, c, run)
			}

			// bring every deck up to date before waiting for edits
			for _, path := range args {
				if err := handle(ctx, path); err != nil {
					monitoring.Logf("%v", err)
				}
			}

			w, err := watch.New(args, handle)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			<-ctx.Done()
			st := w.Stats()
			monitoring.Logf("watch stopped: %d events, %d recalculations, %d errors", st.Events, st.Handled, st.Errors)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		f    runFlags
		jobs int
	)
	cmd := &cobra.Command{
		Use:   "batch <deck>...",
		Short: "Calculate many decks concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var loadErrs []error
			calcs := make(map[*xmimsim.Model]*calculation, len(args))
			var queue []batch.Job
			for _, path := range args {
				c, err := a.load(path)
				if err != nil {
					loadErrs = append(loadErrs, err)
					continue
				}
				opts := xmimsim.CalcOptionsFromConfig(&c.deck.Run)
				if err := f.apply(cmd, &opts); err != nil {
					return err
				}
				calcs[c.model] = c
				queue = append(queue, batch.Job{Label: path, Model: c.model, Options: opts})
			}

			l, err := a.openLedger()
			if err != nil {
				return err
			}
			if l != nil {
				defer l.Close()
			}

			runner := &batch.Runner{
				Limit: jobs,
				OnDone: func(ctx context.Context, o batch.Outcome) {
					c := calcs[o.Job.Model]
					c.result = o.Result
					if _, err := record(ctx, l, c, o.Err); err != nil {
						monitoring.Logf("failed to record %s: %v", o.Job.Label, err)
					}
				},
			}
			outcomes, runErr := runner.Run(ctx, queue)
			if err := printOutcomes(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			return errors.Join(append(loadErrs, runErr)...)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "concurrent simulations (0 uses GOMAXPROCS)")
	return cmd
}

func printOutcomes(w io.Writer, outcomes []batch.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DECK\tSTATUS\tNAME")
	for _, o := range outcomes {
		status, name := ledger.StatusOK, ""
		if o.Result != nil {
			name = o.Result.Name
			if o.Result.Skipped {
				status = ledger.StatusSkipped
			}
		}
		if o.Err != nil {
			status = ledger.StatusFailed
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Job.Label, status, name)
	}
	return tw.Flush()
}
