package simulator

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/timeutil"
)

func newTestRunner(builder CommandBuilder) *Runner {
	return &Runner{
		Builder:  builder,
		LookPath: func(file string) (string, error) { return "/opt/xmimsim/bin/" + file, nil },
		Clock:    timeutil.NewMockClock(time.Unix(0, 0)),
		goos:     "linux",
	}
}

func TestRunner_Run(t *testing.T) {
	builder := &MockCommandBuilder{Executor: &MockCommandExecutor{Stdout: []byte("done\n")}}
	r := newTestRunner(builder)

	inv, err := r.Run(context.Background(), "xmi/a.xmsi", "xmi/a.csv", Options{Export: "csv-file", Threads: 2})
	require.NoError(t, err)

	require.Equal(t, 1, builder.Calls())
	cmd := builder.LastCommand()
	assert.Equal(t, "/opt/xmimsim/bin/xmimsim", cmd.Name)
	assert.Equal(t, []string{"xmi/a.xmsi", "--set-threads=2", "--csv-file", "xmi/a.csv"}, cmd.Args)
	assert.Equal(t, "done\n", inv.Stdout)
	assert.Equal(t, "/opt/xmimsim/bin/xmimsim xmi/a.xmsi --set-threads=2 --csv-file xmi/a.csv", inv.CommandLine())
}

func TestRunner_BinaryOverride(t *testing.T) {
	builder := &MockCommandBuilder{}
	r := newTestRunner(builder)
	r.Binary = "xmimsim-dev"

	_, err := r.Run(context.Background(), "a.xmsi", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "/opt/xmimsim/bin/xmimsim-dev", builder.LastCommand().Name)
}

func TestRunner_BinaryNotFound(t *testing.T) {
	for _, goos := range []string{"linux", "windows"} {
		t.Run(goos, func(t *testing.T) {
			builder := &MockCommandBuilder{}
			r := newTestRunner(builder)
			r.goos = goos
			r.LookPath = func(string) (string, error) { return "", exec.ErrNotFound }

			_, err := r.Run(context.Background(), "a.xmsi", "", Options{})
			require.ErrorIs(t, err, ErrBinaryNotFound)
			assert.Contains(t, err.Error(), binaryFor(goos))
			assert.Zero(t, builder.Calls(), "nothing runs without a binary")
		})
	}
}

func TestRunner_WindowsHint(t *testing.T) {
	assert.Contains(t, installHint("windows"), "Path")
	assert.Contains(t, installHint("darwin"), "xmimsim --help")
	assert.Equal(t, "xmimsim-cli.exe", binaryFor("windows"))
	assert.Equal(t, "xmimsim", binaryFor("darwin"))
}

func TestRunner_Failure(t *testing.T) {
	builder := &MockCommandBuilder{Executor: &MockCommandExecutor{
		Stderr: []byte("could not open input file\n"),
		Err:    errors.New("exit status 1"),
	}}
	r := newTestRunner(builder)

	inv, err := r.Run(context.Background(), "a.xmsi", "", Options{})
	require.ErrorIs(t, err, ErrSimulationFailed)
	assert.Contains(t, err.Error(), "could not open input file")
	require.NotNil(t, inv)
	assert.Equal(t, "could not open input file\n", inv.Stderr)
}

func TestRunner_InvalidOptions(t *testing.T) {
	builder := &MockCommandBuilder{}
	_, err := newTestRunner(builder).Run(context.Background(), "a.xmsi", "", Options{Export: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidExport)
	assert.Zero(t, builder.Calls())
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	builder := &MockCommandBuilder{Executor: &MockCommandExecutor{Err: errors.New("signal: killed")}}

	_, err := newTestRunner(builder).Run(ctx, "a.xmsi", "", Options{})
	assert.ErrorIs(t, err, ErrSimulationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealCommandBuilder(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	stdout, stderr, err := RealCommandBuilder{}.BuildCommand(context.Background(), "sh", "-c", "echo out; echo err >&2").Run()
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))
}
