package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/gradapt/internal/runlog"
)

func newTestServer(t *testing.T) (*echo.Echo, *runlog.Root, string) {
	t.Helper()
	root, err := runlog.NewRoot(t.TempDir())
	require.NoError(t, err)
	resultDir := t.TempDir()

	e := echo.New()
	NewServer(root, resultDir).Register(e)
	return e, root, resultDir
}

func TestListRuns(t *testing.T) {
	e, root, _ := newTestServer(t)

	run, err := root.NewRun("moons", 1, "dagde_1_0.1_42")
	require.NoError(t, err)
	run.Scalar("loss/train", 1, 0.5)
	require.NoError(t, run.Close())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var metas []runlog.Meta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, run.ID(), metas[0].ID)
	assert.Equal(t, "moons", metas[0].Dataset)
}

func TestListRunsEmpty(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRunMetrics(t *testing.T) {
	e, root, _ := newTestServer(t)

	run, err := root.NewRun("moons", 2, "gde_0.1_0.1_42")
	require.NoError(t, err)
	run.Scalar("loss/train", 1, 0.9)
	run.Scalar("loss/train", 2, 0.4)
	require.NoError(t, run.Close())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID()+"/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []runlog.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 0.4, records[1].Value)
}

func TestRunMetricsUnknownID(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/nope/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found_error")
}

func TestListResults(t *testing.T) {
	e, _, resultDir := newTestServer(t)

	sub := filepath.Join(resultDir, "moons")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "dagde_42.json"),
		[]byte(`{"dataset":"moons","method":"dagde","target_acc":0.91}`), 0o644))
	// Invalid JSON files are skipped, not served.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "broken.json"), []byte("{"), 0o644))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "dagde", results[0]["method"])
}
