package simulator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/timeutil"
)

var (
	// ErrBinaryNotFound is returned when the simulator executable cannot be
	// located on PATH.
	ErrBinaryNotFound = errors.New("XMI-MSIM binary not found")

	// ErrSimulationFailed is returned when the simulator exits unsuccessfully.
	ErrSimulationFailed = errors.New("simulation failed")
)

// DefaultBinary is the simulator executable name for the host platform.
func DefaultBinary() string {
	return binaryFor(runtime.GOOS)
}

func binaryFor(goos string) string {
	if goos == "windows" {
		return "xmimsim-cli.exe"
	}
	return "xmimsim"
}

// installHint explains how to make the binary reachable on goos.
func installHint(goos string) string {
	if goos == "windows" {
		return "install XMI-MSIM and add the directory holding xmimsim-cli.exe " +
			`(usually "C:\Program Files\XMI-MSIM 64-bit\Bin") to the Path environment variable`
	}
	return "install XMI-MSIM and check that `xmimsim --help` works from a shell"
}

// Runner invokes the simulator.
type Runner struct {
	// Binary overrides the executable; empty uses DefaultBinary.
	Binary string
	// Timeout bounds a single run; zero means no limit beyond the caller's context.
	Timeout time.Duration

	Builder  CommandBuilder
	LookPath func(file string) (string, error)
	Clock    timeutil.Clock

	goos string
}

// NewRunner creates a Runner that executes real processes.
func NewRunner() *Runner {
	return &Runner{
		Builder:  RealCommandBuilder{},
		LookPath: exec.LookPath,
		Clock:    timeutil.RealClock{},
		goos:     runtime.GOOS,
	}
}

// Invocation describes a completed simulator run.
type Invocation struct {
	Binary   string
	Args     []string
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandLine renders the invocation for logs.
func (inv *Invocation) CommandLine() string {
	return strings.Join(append([]string{inv.Binary}, inv.Args...), " ")
}

func (r *Runner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	if r.goos != "" {
		return binaryFor(r.goos)
	}
	return DefaultBinary()
}

func (r *Runner) hostOS() string {
	if r.goos != "" {
		return r.goos
	}
	return runtime.GOOS
}

// Run executes the simulator on inputPath. exportPath receives the export
// when opts.Export is set.
func (r *Runner) Run(ctx context.Context, inputPath, exportPath string, opts Options) (*Invocation, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	bin := r.binary()
	if r.LookPath != nil {
		resolved, err := r.LookPath(bin)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s", ErrBinaryNotFound, bin, installHint(r.hostOS()))
		}
		bin = resolved
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	inv := &Invocation{Binary: bin, Args: opts.Args(inputPath, exportPath)}
	monitoring.Logf("running %s", inv.CommandLine())

	start := clock.Now()
	stdout, stderr, err := r.Builder.BuildCommand(ctx, bin, inv.Args...).Run()
	inv.Duration = clock.Since(start)
	inv.Stdout = string(stdout)
	inv.Stderr = string(stderr)

	if len(stdout) > 0 {
		monitoring.Debugf("xmimsim stdout: %s", strings.TrimSpace(inv.Stdout))
	}
	if len(stderr) > 0 {
		monitoring.Debugf("xmimsim stderr: %s", strings.TrimSpace(inv.Stderr))
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return inv, fmt.Errorf("%w: %w", ErrSimulationFailed, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return inv, fmt.Errorf("%w: %q: %s", ErrBinaryNotFound, bin, installHint(r.hostOS()))
		}
		msg := strings.TrimSpace(inv.Stderr)
		if msg == "" {
			return inv, fmt.Errorf("%w: %w", ErrSimulationFailed, err)
		}
		return inv, fmt.Errorf("%w: %w: %s", ErrSimulationFailed, err, msg)
	}

	monitoring.Logf("simulation finished in %s", inv.Duration.Round(time.Millisecond))
	return inv, nil
}
