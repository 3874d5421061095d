package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"translator-agent/internal/build"
	"translator-agent/internal/command"
	"translator-agent/internal/parser"
	"translator-agent/internal/registry"
	"translator-agent/internal/servicemsg"
	"translator-agent/internal/worker"
)

// Lines is the pipeline commands are submitted to.
type Lines interface {
	Apply(source, line string) error
	Sync() error
}

// Tracker is the build lifecycle the API drives.
type Tracker interface {
	Start(info build.Info) (build.Info, error)
	StartRunner(name string) error
	FinishRunner() error
	Finish() (build.Info, error)
	Current() (build.Info, bool)
}

// Parsers exposes the enabled translators.
type Parsers interface {
	Snapshot() []registry.Active
}

// API holds shared state for all handlers
type API struct {
	Lines   Lines
	Tracker Tracker
	Parsers Parsers
	Presets *parser.Bundled
}

func NewAPI(lines Lines, tracker Tracker, parsers Parsers) *API {
	return &API{Lines: lines, Tracker: tracker, Parsers: parsers, Presets: parser.NewBundled()}
}

// RegisterRoutes mounts all API endpoints on the given mux
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", a.cors(a.handleHealth))
	mux.HandleFunc("/api/parsers", a.cors(a.handleParsers))
	mux.HandleFunc("/api/presets", a.cors(a.handlePresets))
	mux.HandleFunc("/api/commands", a.cors(a.handleCommands))
	mux.HandleFunc("/api/build/start", a.cors(a.post(a.handleBuildStart)))
	mux.HandleFunc("/api/build/finish", a.cors(a.post(a.handleBuildFinish)))
	mux.HandleFunc("/api/runner/start", a.cors(a.post(a.handleRunnerStart)))
	mux.HandleFunc("/api/runner/finish", a.cors(a.post(a.handleRunnerFinish)))
}

// ── CORS middleware ──────────────────────────────────────────────
func (a *API) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (a *API) post(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// ── Health ───────────────────────────────────────────────────────

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"parsers": len(a.Parsers.Snapshot()),
		"presets": len(parser.AvailablePresets()),
	}
	if info, ok := a.Tracker.Current(); ok {
		resp["build"] = info
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Parsers ──────────────────────────────────────────────────────

func (a *API) handleParsers(w http.ResponseWriter, _ *http.Request) {
	active := a.Parsers.Snapshot()
	if active == nil {
		active = []registry.Active{}
	}
	writeJSON(w, http.StatusOK, active)
}

func (a *API) handlePresets(w http.ResponseWriter, _ *http.Request) {
	presets, err := a.Presets.Presets()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

// ── Commands ─────────────────────────────────────────────────────

type commandResult struct {
	Line    string `json:"line"`
	Command string `json:"command,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleCommands accepts one service message per line of the request body.
// Every line is validated before any is applied. Valid commands go through
// the line pipeline so they are ordered with the build output, and each
// result carries the error its command produced.
func (a *API) handleCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var results []commandResult
	invalid := false
	scanner := bufio.NewScanner(io.LimitReader(r.Body, 1<<20))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res := commandResult{Line: line}
		cmd, err := parseCommand(line)
		if err != nil {
			invalid = true
			res.setError(err)
		} else {
			res.Command = cmd.Name()
			res.Scope = string(cmd.CommandScope())
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(results) == 0 {
		http.Error(w, "No commands in request body", http.StatusBadRequest)
		return
	}
	if invalid {
		writeJSON(w, http.StatusBadRequest, results)
		return
	}

	failed := 0
	for i := range results {
		err := a.Lines.Apply("api", results[i].Line)
		if errors.Is(err, worker.ErrClosed) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			failed++
			results[i].setError(err)
		}
	}
	log.Printf("API: applied %d command(s), %d rejected", len(results)-failed, failed)

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, results)
}

func (r *commandResult) setError(err error) {
	r.Code = string(command.CodeOf(err))
	r.Error = err.Error()
}

func parseCommand(line string) (command.Command, error) {
	msg, err := servicemsg.Parse(line)
	if err != nil {
		return nil, err
	}
	if !command.IsCommandName(msg.Name) {
		return nil, command.NewUnsupportedCommandError(msg.Name)
	}
	return command.Parse(msg)
}

// ── Build lifecycle ──────────────────────────────────────────────

type buildRequest struct {
	ID          string `json:"id"`
	CheckoutDir string `json:"checkoutDir"`
}

type runnerRequest struct {
	Name string `json:"name"`
}

func (a *API) handleBuildStart(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !a.drain(w) {
		return
	}
	info, err := a.Tracker.Start(build.Info{ID: req.ID, CheckoutDir: req.CheckoutDir})
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (a *API) handleBuildFinish(w http.ResponseWriter, _ *http.Request) {
	if !a.drain(w) {
		return
	}
	info, err := a.Tracker.Finish()
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleRunnerStart(w http.ResponseWriter, r *http.Request) {
	var req runnerRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Missing runner name", http.StatusBadRequest)
		return
	}
	if !a.drain(w) {
		return
	}
	if err := a.Tracker.StartRunner(req.Name); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"runner": req.Name})
}

func (a *API) handleRunnerFinish(w http.ResponseWriter, _ *http.Request) {
	if !a.drain(w) {
		return
	}
	if err := a.Tracker.FinishRunner(); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "finished"})
}

// drain waits for queued lines so lifecycle changes land between lines.
func (a *API) drain(w http.ResponseWriter) bool {
	if err := a.Lines.Sync(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}
	return true
}

// ── Helpers ──────────────────────────────────────────────────────

func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, build.ErrBuildRunning), errors.Is(err, build.ErrRunnerRunning),
		errors.Is(err, build.ErrNoBuild), errors.Is(err, build.ErrNoRunner):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
