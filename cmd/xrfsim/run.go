package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/config"
	"github.com/banshee-data/xrfsim/internal/ledger"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/spectrum"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

// runFlags override the run options of a deck when set on the command line.
type runFlags struct {
	force   bool
	dir     string
	export  string
	threads int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "run the simulator even if artifacts exist")
	cmd.Flags().StringVar(&f.dir, "dir", artifact.DefaultDir, "artifact directory")
	cmd.Flags().StringVar(&f.export, "export", string(simulator.DefaultExport), "spectrum export (csv-file, spe-file, svg-file, htm-file, optionally -unconvoluted; none to disable)")
	cmd.Flags().IntVar(&f.threads, "threads", 0, "simulator threads (0 uses all cores)")
}

func (f *runFlags) apply(cmd *cobra.Command, opts *xmimsim.CalcOptions) error {
	flags := cmd.Flags()
	if flags.Changed("force") {
		opts.Force = f.force
	}
	if flags.Changed("dir") {
		opts.Dir = f.dir
	}
	if flags.Changed("export") {
		e, err := simulator.ParseExport(f.export)
		if err != nil {
			return err
		}
		opts.Simulator.Export = e
	}
	if flags.Changed("threads") {
		if f.threads < 0 {
			return fmt.Errorf("%w: --threads must not be negative", config.ErrInvalid)
		}
		opts.Simulator.Threads = f.threads
	}
	return nil
}

// calculation is a deck together with the model built from it and the
// outcome of its last run.
type calculation struct {
	path   string
	deck   *config.Deck
	model  *xmimsim.Model
	result *xmimsim.Result
}

func (a *app) load(path string) (*calculation, error) {
	opts := append([]xmimsim.Option{xmimsim.WithStore(a.store)}, a.opts...)
	m, d, err := xmimsim.LoadDeck(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &calculation{path: path, deck: d, model: m}, nil
}

func (a *app) calculate(ctx context.Context, c *calculation, opts xmimsim.CalcOptions) error {
	res, err := c.model.Calculate(ctx, opts)
	c.result = res
	return err
}

// record writes a finished calculation and its window statistics to l. A nil
// ledger records nothing.
func record(ctx context.Context, l *ledger.Ledger, c *calculation, runErr error) (ledger.Run, error) {
	if l == nil {
		return ledger.Run{}, nil
	}
	run, err := l.RecordRun(ctx, ledger.FromResult(c.result, c.path, runErr))
	if err != nil {
		return run, err
	}
	if runErr != nil || len(c.deck.Windows) == 0 {
		return run, nil
	}
	s, err := c.model.Spectrum()
	if err != nil {
		monitoring.Logf("run %s recorded without window counts: %v", run.ID, err)
		return run, nil
	}
	return run, l.RecordWindows(ctx, run.ID, s.StatsWindows(xmimsim.Windows(c.deck)))
}

// runOne loads a deck, calculates it and records the outcome.
func (a *app) runOne(ctx context.Context, cmd *cobra.Command, f *runFlags, path string) (*calculation, ledger.Run, error) {
	c, err := a.load(path)
	if err != nil {
		return nil, ledger.Run{}, err
	}
	opts := xmimsim.CalcOptionsFromConfig(&c.deck.Run)
	if err := f.apply(cmd, &opts); err != nil {
		return nil, ledger.Run{}, err
	}

	l, err := a.openLedger()
	if err != nil {
		return nil, ledger.Run{}, err
	}
	if l != nil {
		defer l.Close()
	}

	runErr := a.calculate(ctx, c, opts)
	run, err := record(ctx, l, c, runErr)
	if err != nil {
		monitoring.Logf("failed to record run: %v", err)
	}
	return c, run, runErr
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <deck>",
		Short: "Render a deck, run the simulator and summarize the spectrum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, run, err := a.runOne(cmd.Context(), cmd, &f, args[0])
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), c, run)
		},
	}
	f.register(cmd)
	return cmd
}

func printSummary(w io.Writer, c *calculation, run ledger.Run) error {
	res := c.result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "name:\t%s\n", res.Name)
	fmt.Fprintf(tw, "digest:\t%s\n", res.Digest)
	if run.ID != "" {
		fmt.Fprintf(tw, "run:\t%s\n", run.ID)
	}
	if res.Skipped {
		fmt.Fprintf(tw, "status:\tskipped (artifacts exist)\n")
	} else {
		fmt.Fprintf(tw, "status:\tsimulated in %s\n", res.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "input:\t%s\n", res.Paths.Input())
	if p := res.ExportPath(); p != "" {
		fmt.Fprintf(tw, "export:\t%s\n", p)
	}

	var counts map[string]int64
	if len(c.deck.Windows) > 0 {
		var err error
		if counts, err = c.model.CountWindows(xmimsim.Windows(c.deck)); err != nil {
			return err
		}
		fmt.Fprintf(tw, "spectrum:\t%s\n", res.Origin())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if counts == nil {
		return nil
	}
	fmt.Fprintln(w)
	return printCounts(w, xmimsim.Windows(c.deck), counts)
}

func printCounts(w io.Writer, windows map[string]spectrum.Window, counts map[string]int64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tLOW (keV)\tHIGH (keV)\tPHOTONS")
	for _, name := range spectrum.SortedNames(windows) {
		win := windows[name]
		fmt.Fprintf(tw, "%s\t%g\t%g\t%d\n", name, win.Low, win.High, counts[name])
	}
	return tw.Flush()
}

func newRenderCmd(a *app) *cobra.Command {
	var bodyOnly bool
	cmd := &cobra.Command{
		Use:   "render <deck>",
		Short: "Print the .xmsi input file a deck produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(args[0])
			if err != nil {
				return err
			}
			if bodyOnly {
				body, err := c.model.Body()
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}

			opts := xmimsim.CalcOptionsFromConfig(&c.deck.Run)
			doc, err := c.model.Document()
			if err != nil {
				return err
			}
			name, err := c.model.Filename(opts.Simulator)
			if err != nil {
				return err
			}
			out, err := doc.Render(artifact.Paths{Dir: opts.Dir, Name: name}.Base())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&bodyOnly, "body", false, "print only the hashed body, without the header")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "count <deck> [low high]",
		Short: "Count photons between two energies, or in every window of the deck",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts a deck and optionally low and high energies in keV, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var lo, hi float64
			if len(args) == 3 {
				var err error
				if lo, err = strconv.ParseFloat(args[1], 64); err != nil {
					return fmt.Errorf("invalid low energy %q: %w", args[1], err)
				}
				if hi, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid high energy %q: %w", args[2], err)
				}
			}

			c, _, err := a.runOne(cmd.Context(), cmd, &f, args[0])
			if err != nil {
				return err
			}

			if len(args) == 3 {
				n, err := c.model.Count(lo, hi)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			windows := xmimsim.Windows(c.deck)
			if len(windows) == 0 {
				return fmt.Errorf("%s defines no windows; pass low and high energies", args[0])
			}
			counts, err := c.model.CountWindows(windows)
			if err != nil {
				return err
			}
			return printCounts(cmd.OutOrStdout(), windows, counts)
		},
	}
	f.register(cmd)
	return cmd
}

func newPlotCmd(a *app) *cobra.Command {
	var (
		f      runFlags
		output string
		logY   bool
		html   bool
	)
	cmd := &cobra.Command{
		Use:   "plot <deck> -o <file>",
		Short: "Plot the spectrum of a deck as PNG, SVG, PDF or an interactive HTML chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(filepath.Ext(output), ".html") {
				html = true
			}
			var format string
			if !html {
				var err error
				if format, err = spectrum.FormatFromPath(output); err != nil {
					return err
				}
			}

			c, _, err := a.runOne(cmd.Context(), cmd, &f, args[0])
			if err != nil {
				return err
			}
			s, err := c.model.Spectrum()
			if err != nil {
				return err
			}

			out, err := a.store.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}

			windows := xmimsim.Windows(c.deck)
			title := c.result.Name
			if html {
				err = s.Chart(out, spectrum.ChartOptions{Title: title, Subtitle: args[0], Windows: windows})
			} else {
				err = s.Plot(out, spectrum.PlotOptions{Title: title, Windows: windows, LogY: logY, Format: format})
			}
			if err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.png, .svg, .pdf or .html)")
	cmd.Flags().BoolVar(&logY, "log", false, "logarithmic count axis")
	cmd.Flags().BoolVar(&html, "html", false, "write an interactive HTML chart")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
