package ledger

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/spectrum"
	"github.com/banshee-data/xrfsim/internal/testutil"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_Migrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	require.NoError(t, err)

	version, dirty, err := l.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var journal string
	require.NoError(t, l.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)
	require.NoError(t, l.Close())

	// reopening an up-to-date ledger is a no-op
	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, path, l.Path())
}

func TestRecordRun_RoundTrip(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 9, 0, 0, 123, time.UTC)

	stored, err := l.RecordRun(ctx, Run{
		Name:     "abc",
		Digest:   "abc",
		DeckPath: "decks/fe.yaml",
		Dir:      "xmi",
		Export:   "csv-file",
		Flags:    []string{"--enable-poisson", "--enable-pile-up"},
		Threads:  4,
		Status:   StatusOK,
		Started:  started,
		Duration: 42 * time.Second,
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	got, err := l.GetRun(ctx, stored.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(stored, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}

	_, err = l.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		_, err := l.RecordRun(ctx, Run{Name: name, Status: StatusOK, Started: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	var names []string
	for _, r := range runs {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"third", "second", "first"}, names)

	runs, err = l.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordWindows(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	run, err := l.RecordRun(ctx, Run{Name: "w", Status: StatusOK})
	require.NoError(t, err)

	s := testutil.ExampleSpectrum()
	stats := s.StatsWindows(map[string]spectrum.Window{
		"k_b_Fe": {Low: 6.7801, High: 7.34},
		"empty":  {Low: 1, High: 2},
	})
	require.NoError(t, l.RecordWindows(ctx, run.ID, stats))
	// rewriting replaces rather than duplicates
	require.NoError(t, l.RecordWindows(ctx, run.ID, stats))

	got, err := l.Windows(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "empty", got[0].Window)
	assert.Zero(t, got[0].Photons)
	assert.Nil(t, got[0].Centroid, "NaN centroid is stored as NULL")

	assert.Equal(t, "k_b_Fe", got[1].Window)
	assert.Equal(t, int64(30), got[1].Photons)
	require.NotNil(t, got[1].Centroid)
	assert.InDelta(t, 7.05, *got[1].Centroid, 1e-9)
	assert.False(t, math.IsNaN(got[1].Low))
}

func TestFromResult(t *testing.T) {
	res := &xmimsim.Result{
		Name:   "deadbeef",
		Digest: "deadbeef",
		Paths:  artifact.Paths{Dir: "xmi", Name: "deadbeef"},
		Options: xmimsim.CalcOptions{
			Simulator: simulator.Options{EnablePoisson: true, Export: "csv-file-unconvoluted"},
		},
		Skipped: true,
	}
	r := FromResult(res, "deck.yaml", nil)
	assert.Equal(t, StatusSkipped, r.Status)
	assert.Equal(t, []string{"--enable-poisson"}, r.Flags)
	assert.Equal(t, "csv-file-unconvoluted", r.Export)
	assert.Equal(t, artifact.Paths{Dir: "xmi", Name: "deadbeef"}, r.Paths())

	failed := FromResult(nil, "deck.yaml", errors.New("boom"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

func TestRun_Spectrum(t *testing.T) {
	store := artifact.NewMemoryStore()
	r := Run{Dir: "xmi", Name: "n", Export: "csv-file"}
	_, err := r.Spectrum(store)
	assert.ErrorIs(t, err, spectrum.ErrNoSpectrum)

	require.NoError(t, store.WriteFile("xmi/n.csv", testutil.CSV(testutil.ExampleSpectrum()), 0o644))
	s, err := r.Spectrum(store)
	require.NoError(t, err)
	assert.Equal(t, int64(30), s.Count(6.7801, 7.34))
}

func TestAttachAdminRoutes(t *testing.T) {
	l := openTest(t)
	mux := http.NewServeMux()
	require.NoError(t, l.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/tailsql/", "/debug/backup"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			assert.NotEqual(t, http.StatusNotFound, w.Code, "route should be registered")
		})
	}
}

func TestServeBackup(t *testing.T) {
	l := openTest(t)
	_, err := l.RecordRun(context.Background(), Run{Name: "kept", Status: StatusOK})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	l.serveBackup(w, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
}
