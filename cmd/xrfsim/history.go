package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/xrfsim/internal/api"
	"github.com/banshee-data/xrfsim/internal/ledger"
	"github.com/banshee-data/xrfsim/internal/monitoring"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run with its window counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.requireLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := cmd.Context()
			if len(args) == 1 {
				return showRun(ctx, cmd.OutOrStdout(), l, args[0])
			}
			runs, err := l.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	return cmd
}

func printRuns(w io.Writer, runs []ledger.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDURATION\tNAME")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.Status, r.Duration.Round(time.Millisecond), r.Name)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, w io.Writer, l *ledger.Ledger, id string) error {
	r, err := l.GetRun(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}
	windows, err := l.Windows(ctx, id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run:\t%s\n", r.ID)
	fmt.Fprintf(tw, "name:\t%s\n", r.Name)
	fmt.Fprintf(tw, "deck:\t%s\n", r.DeckPath)
	fmt.Fprintf(tw, "status:\t%s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(tw, "error:\t%s\n", r.Error)
	}
	fmt.Fprintf(tw, "started:\t%s\n", r.Started.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "duration:\t%s\n", r.Duration.Round(time.Millisecond))
	if len(r.Flags) > 0 {
		fmt.Fprintf(tw, "flags:\t%s\n", strings.Join(r.Flags, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(windows) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tLOW (keV)\tHIGH (keV)\tPHOTONS\tCENTROID (keV)")
	for _, wc := range windows {
		centroid := "-"
		if wc.Centroid != nil {
			centroid = fmt.Sprintf("%.4f", *wc.Centroid)
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%d\t%s\n", wc.Window, wc.Low, wc.High, wc.Photons, centroid)
	}
	return tw.Flush()
}

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs, spectra and charts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.requireLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			mux := http.NewServeMux()
			mux.Handle("/api/", api.NewServer(l, a.store).ServeMux())
			if err := l.AttachAdminRoutes(mux); err != nil {
				return fmt.Errorf("failed to attach admin routes: %w", err)
			}
			return serve(cmd.Context(), &http.Server{
				Addr:    listen,
				Handler: api.LoggingMiddleware(mux),
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "localhost:8080", "HTTP listen address")
	return cmd
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return <-errCh
}
