package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/testutil"
	"github.com/banshee-data/xrfsim/internal/timeutil"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

// env is a fake simulator shared by every job of a test. It tracks how many
// runs are in flight per input file.
type env struct {
	store   *artifact.MemoryStore
	builder *simulator.MockCommandBuilder
	clock   *timeutil.MockClock

	mu          sync.Mutex
	inFlight    map[string]int
	maxPerInput int
	maxTotal    int
	total       int
}

func newEnv() *env {
	e := &env{
		store:    artifact.NewMemoryStore(),
		clock:    timeutil.NewMockClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		inFlight: make(map[string]int),
	}
	fake := testutil.FakeSimulation(e.store, testutil.ExampleSpectrum())
	e.builder = &simulator.MockCommandBuilder{
		ExecutorFactory: func(string, []string) *simulator.MockCommandExecutor {
			return &simulator.MockCommandExecutor{OnRun: func(args []string) error {
				e.enter(args[0])
				defer e.leave(args[0])
				time.Sleep(20 * time.Millisecond)
				return fake(args)
			}}
		},
	}
	return e
}

func (e *env) enter(input string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight[input]++
	e.total++
	e.maxPerInput = max(e.maxPerInput, e.inFlight[input])
	e.maxTotal = max(e.maxTotal, e.total)
}

func (e *env) leave(input string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight[input]--
	e.total--
}

func (e *env) job(t *testing.T, label string, mutate func(*xmimsim.CalcOptions)) Job {
	t.Helper()
	runner := &simulator.Runner{
		Builder:  e.builder,
		LookPath: func(file string) (string, error) { return file, nil },
		Clock:    e.clock,
	}
	m, err := xmimsim.FromDeck(testutil.ExampleDeck(),
		xmimsim.WithStore(e.store), xmimsim.WithRunner(runner), xmimsim.WithClock(e.clock))
	require.NoError(t, err)

	opts := xmimsim.DefaultCalcOptions()
	if mutate != nil {
		mutate(&opts)
	}
	return Job{Label: label, Model: m, Options: opts}
}

func TestRun_SharedNamesRunInSequence(t *testing.T) {
	e := newEnv()
	jobs := []Job{
		e.job(t, "a", nil),
		e.job(t, "a-again", nil),
		e.job(t, "poisson", func(o *xmimsim.CalcOptions) { o.Simulator.EnablePoisson = true }),
		e.job(t, "pileup", func(o *xmimsim.CalcOptions) { o.Simulator.EnablePileUp = true }),
	}

	var mu sync.Mutex
	var done []string
	r := &Runner{Limit: 4, OnDone: func(_ context.Context, o Outcome) {
		mu.Lock()
		done = append(done, o.Job.Label)
		mu.Unlock()
	}}
	outcomes, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	for i, o := range outcomes {
		assert.Equal(t, jobs[i].Label, o.Job.Label, "outcomes keep job order")
		require.NoError(t, o.Err)
	}
	assert.False(t, outcomes[0].Result.Skipped)
	assert.True(t, outcomes[1].Result.Skipped, "second job finds the first one's artifacts")
	assert.Equal(t, outcomes[0].Result.Name, outcomes[1].Result.Name)
	assert.NotEqual(t, outcomes[0].Result.Name, outcomes[2].Result.Name)

	assert.Equal(t, 3, e.builder.Calls())
	assert.Equal(t, 1, e.maxPerInput)
	assert.ElementsMatch(t, []string{"a", "a-again", "poisson", "pileup"}, done)
}

func TestRun_Limit(t *testing.T) {
	e := newEnv()
	var jobs []Job
	for _, flag := range []func(*xmimsim.CalcOptions){
		func(o *xmimsim.CalcOptions) { o.Simulator.EnablePoisson = true },
		func(o *xmimsim.CalcOptions) { o.Simulator.EnablePileUp = true },
		func(o *xmimsim.CalcOptions) { o.Simulator.DisableMLines = true },
		func(o *xmimsim.CalcOptions) { o.Simulator.DisableEscapePeaks = true },
	} {
		jobs = append(jobs, e.job(t, "j", flag))
	}

	_, err := (&Runner{Limit: 1}).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 4, e.builder.Calls())
	assert.Equal(t, 1, e.maxTotal)
}

func TestRun_FailuresDoNotStopOthers(t *testing.T) {
	e := newEnv()
	bad := e.job(t, "bad", nil)
	bad.Model.AddLayer(composition.Input{Symbols: []string{"Qq"}, Masses: []float64{1}}, 1, 1)

	jobs := []Job{bad, e.job(t, "good", nil)}
	var reported []string
	outcomes, err := (&Runner{OnDone: func(_ context.Context, o Outcome) {
		if o.Err != nil {
			reported = append(reported, o.Job.Label)
		}
	}}).Run(context.Background(), jobs)

	require.Error(t, err)
	assert.ErrorIs(t, err, composition.ErrUnknownElement)
	assert.Contains(t, err.Error(), "bad:")
	assert.ErrorIs(t, outcomes[0].Err, composition.ErrUnknownElement)
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, []string{"bad"}, reported)
	assert.Equal(t, 1, e.builder.Calls())
}

func TestRun_Cancelled(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := (&Runner{Limit: 2}).Run(ctx, []Job{e.job(t, "a", nil)})
	require.Error(t, err)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
	assert.Zero(t, e.builder.Calls())
}

func TestRun_Empty(t *testing.T) {
	outcomes, err := (&Runner{}).Run(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, outcomes)
}
