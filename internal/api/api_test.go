package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translator-agent/internal/build"
	"translator-agent/internal/loader"
	"translator-agent/internal/output"
	"translator-agent/internal/registry"
	"translator-agent/internal/worker"
)

type fixture struct {
	mux     *http.ServeMux
	tracker *build.Tracker
	reg     *registry.Registry
	out     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tracker := build.NewTracker()
	reg := registry.New(loader.New(tracker), nil)
	tracker.AddListener(reg)

	var out bytes.Buffer
	pool := worker.NewPool(8, &worker.Processor{Registry: reg, Out: output.NewPlainWriter(&out)})
	pool.Start()
	t.Cleanup(pool.Close)

	mux := http.NewServeMux()
	NewAPI(pool, tracker, reg).RegisterRoutes(mux)
	return &fixture{mux: mux, tracker: tracker, reg: reg, out: &out}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["parsers"])
	assert.NotContains(t, body, "build")
}

func TestPresets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Resource":"presets/maven.yaml"`)
}

func TestBuildFlowWithCommands(t *testing.T) {
	f := newFixture(t)
	checkout := t.TempDir()

	rec := f.do(http.MethodPost, "/api/build/start", `{"id":"b-1","checkoutDir":"`+checkout+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, f.tracker.IsRunningBuild())

	rec = f.do(http.MethodPost, "/api/runner/start", `{"name":"compile"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/commands",
		"##teamcity[RegexMessageParser.Enable resource='presets/gcc.yaml' scope='build']\n"+
			"##teamcity[RegexMessageParser.Enable resource='presets/maven.yaml']\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/parsers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active []registry.Active
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 2)
	assert.Equal(t, "maven", active[0].Name)
	assert.Equal(t, "gcc", active[1].Name)

	rec = f.do(http.MethodPost, "/api/runner/finish", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.reg.Snapshot(), 1)

	rec = f.do(http.MethodPost, "/api/build/finish", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.reg.Snapshot())
	assert.Empty(t, f.out.String(), "commands are consumed")
}

func TestCommands_Rejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/commands",
		"##teamcity[RegexMessageParser.Enable resource='presets/gcc.yaml']\n"+
			"##teamcity[RegexMessageParser.Enable]\n"+
			"##teamcity[blockOpened name='x']\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var results []commandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Code)
	assert.Equal(t, "MISSING_IDENTIFIER", results[1].Code)
	assert.Equal(t, "UNSUPPORTED_COMMAND", results[2].Code)
	assert.Empty(t, f.reg.Snapshot(), "nothing is applied when any line is invalid")

	rec = f.do(http.MethodPost, "/api/commands", "\n\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/commands", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCommands_ApplyErrors(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/build/start", `{"checkoutDir":"`+t.TempDir()+`"}`).Code)

	rec := f.do(http.MethodPost, "/api/commands",
		"##teamcity[RegexMessageParser.Enable file='/definitely/missing.yaml']\n"+
			"##teamcity[RegexMessageParser.Enable resource='presets/nope.yaml']\n"+
			"##teamcity[RegexMessageParser.Enable resource='presets/gcc.yaml' scope='build']\n")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var results []commandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "FILE_NOT_FOUND", results[0].Code)
	assert.Contains(t, results[0].Error, "/definitely/missing.yaml")
	assert.Equal(t, "RESOURCE_NOT_FOUND", results[1].Code)
	assert.Empty(t, results[2].Code)
	assert.Empty(t, results[2].Error)

	active := f.reg.Snapshot()
	require.Len(t, active, 1)
	assert.Equal(t, "gcc", active[0].Name)
}

func TestLifecycleConflicts(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/build/finish", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/runner/start", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/runner/start", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/api/build/start", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodOptions, "/api/build/start", "").Code)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/build/start", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/build/start", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/runner/finish", "").Code)
}
