package testutil

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/spectrum"
)

func TestAssertStatusCode_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("status mismatch", func(t *testing.T) {
		AssertStatusCode(t, http.StatusOK, http.StatusBadRequest)
	})
	if ok {
		t.Fatal("expected subtest to fail on mismatched status code")
	}
}

func TestExampleDeckIsValid(t *testing.T) {
	d := ExampleDeck()
	require.NoError(t, d.Validate())
	assert.Empty(t, d.Parameters.Missing())
}

func TestFixturesRoundTrip(t *testing.T) {
	s := ExampleSpectrum()

	fromCSV, err := spectrum.ParseCSV(bytes.NewReader(CSV(s)))
	require.NoError(t, err)
	assert.Equal(t, s, fromCSV)

	fromXMSO, err := spectrum.ParseXMSO(bytes.NewReader(XMSO(s)), false)
	require.NoError(t, err)
	assert.Equal(t, s, fromXMSO)
}

func TestFakeSimulation(t *testing.T) {
	store := artifact.NewMemoryStore()
	run := FakeSimulation(store, ExampleSpectrum())

	require.NoError(t, run([]string{"xmi/a.xmsi", "--enable-poisson", "--csv-file", "xmi/a.csv"}))
	assert.Equal(t, []string{"xmi/a.csv", "xmi/a.xmso"}, store.Files("xmi"))

	require.NoError(t, run([]string{"xmi/b.xmsi", "--svg-file-unconvoluted", "xmi/b.svg"}))
	assert.True(t, artifact.Exists(store, "xmi/b.svg"))

	assert.Error(t, run(nil))
}
