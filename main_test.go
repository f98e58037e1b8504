package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/fetchweather/wttr"
)

// isolate keeps the developer's environment out of the CLI under test
func isolate(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("WTTR_BASE_URL", baseURL)
	t.Setenv("WTTR_MOCK", "false")
	for _, key := range []string{"REDIS_ADDR", "PREFETCH_LOCATIONS", "WTTR_CACHE_DIR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func runTest(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := runCLI(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestCLIText(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.String())
		_, _ = w.Write([]byte("Weather report: Paris\n"))
	}))
	defer srv.Close()
	isolate(t, srv.URL)

	out, errOut, err := runTest(t, "Paris", "--units", "m", "--view", "q0")
	require.NoError(t, err)
	assert.Equal(t, "Weather report: Paris\n", out)
	assert.Empty(t, errOut)
	assert.Equal(t, "/Paris?m0q", path.Load())
}

func TestCLIJSONWithMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_condition": [{"temp_C": "12"}]}`))
	}))
	defer srv.Close()
	isolate(t, srv.URL)

	out, errOut, err := runTest(t, "Oslo", "--format", "json", "--metadata")
	require.NoError(t, err)

	var w wttr.WeatherResponse
	require.NoError(t, json.Unmarshal([]byte(out), &w))
	assert.Equal(t, "12", w.CurrentCondition[0].TempC)

	var meta wttr.ResponseMetadata
	require.NoError(t, json.Unmarshal([]byte(errOut), &meta))
	assert.True(t, meta.IsRealData)
}

func TestCLIFallbackWarns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	isolate(t, srv.URL)

	out, errOut, err := runTest(t, "Paris")
	require.NoError(t, err)
	assert.Contains(t, out, wttr.MockNotice)
	assert.Contains(t, errOut, "warning: showing mock data (http_status")
}

func TestCLIMock(t *testing.T) {
	isolate(t, "http://127.0.0.1:1")

	out, errOut, err := runTest(t, "--mock", "--moon-date", "2024-01-15")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Moon phase for 2024-01-15"))
	assert.Empty(t, errOut)
}

func TestCLIPNGToFile(t *testing.T) {
	isolate(t, "http://127.0.0.1:1")
	dest := filepath.Join(t.TempDir(), "paris.png")

	out, _, err := runTest(t, "Paris", "--mock", "--format", "png", "--output", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestCLIPersistentCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("Weather report: Lyon\n"))
	}))
	defer srv.Close()
	isolate(t, srv.URL)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	for i := 0; i < 2; i++ {
		out, _, err := runTest(t, "Lyon", "--cache")
		require.NoError(t, err)
		assert.Equal(t, "Weather report: Lyon\n", out)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestCLIErrors(t *testing.T) {
	isolate(t, "http://127.0.0.1:1")

	_, _, err := runTest(t, "Paris", "--format", "xml")
	assert.ErrorIs(t, err, wttr.ErrInvalidFormat)

	_, _, err = runTest(t, "Paris", "--mock", "--moon-date", "soon")
	assert.ErrorIs(t, err, wttr.ErrInvalidMoonDate)

	_, _, err = runTest(t, "Paris", "Berlin")
	assert.Error(t, err)
}

func TestCLIVersion(t *testing.T) {
	out, _, err := runTest(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
