// Package suite runs the conformance checks against the configured
// API environment and aggregates the results.
package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"apicheck/internal/config"
	"apicheck/internal/executor"
	"apicheck/internal/history"
	"apicheck/internal/report"
	"apicheck/internal/schema"
	"apicheck/internal/validate"
)

// Check is one conformance check against the API.
type Check struct {
	// Name identifies the check in logs, reports and history.
	Name string
	// Method and Path describe the request; Path is joined to the
	// environment's base URL.
	Method string
	Path   string
	// Body is the optional JSON request body.
	Body []byte
	// WantStatus lists acceptable response status codes.
	WantStatus []int
	// Schema names the response schema to validate against; empty
	// skips validation.
	Schema string
	// RequireFields are JSON paths that must exist in the body.
	RequireFields []string
	// WantEmptyBody asserts the body is an empty JSON object.
	WantEmptyBody bool
	// CheckHeaders enables the standard response header assertions.
	CheckHeaders bool
	// CheckLatency asserts the exchange finished within the
	// configured timeout.
	CheckLatency bool
	// Observe marks a documentation-only check: the outcome is
	// recorded but the check never fails.
	Observe bool
}

// Result is the outcome of one executed check.
type Result struct {
	Check    string
	Passed   bool
	Observed bool
	Status   int
	Attempts int
	Duration time.Duration
	Reason   string
}

// Summary aggregates one run.
type Summary struct {
	RunID    string
	BaseURL  string
	Results  []Result
	Passed   int
	Failed   int
	Duration time.Duration
}

// Options wires a Suite together. Sink and Store are optional.
type Options struct {
	Config   *config.Config
	Registry *schema.Registry
	Client   *http.Client
	Sink     report.Sink
	Store    *history.Store
	Logger   *slog.Logger
}

// Suite executes checks sequentially over one environment.
type Suite struct {
	cfg       *config.Config
	baseURL   string
	headers   map[string]string
	exec      *executor.Executor
	validator *validate.Validator
	sink      report.Sink
	store     *history.Store
	logger    *slog.Logger
}

// New resolves the environment and builds a ready-to-run Suite.
// Configuration errors (unknown environment, missing base URL)
// surface here, before any request is made.
func New(opts Options) (*Suite, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("schema registry is required")
	}

	baseURL, err := opts.Config.ResolveBaseURL()
	if err != nil {
		return nil, err
	}

	sink := opts.Sink
	if sink == nil {
		sink = report.NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Suite{
		cfg:       opts.Config,
		baseURL:   strings.TrimRight(baseURL, "/"),
		headers:   opts.Config.ResolveHeaders(),
		validator: validate.New(opts.Registry),
		sink:      sink,
		store:     opts.Store,
		logger:    logger,
	}

	s.exec = executor.New(opts.Client, executor.Hooks{
		OnExchange: func(rec *executor.ExchangeRecord) {
			report.AttachExchange(s.sink, rec)
		},
	})

	return s, nil
}

// BaseURL returns the resolved base URL of the selected environment.
func (s *Suite) BaseURL() string { return s.baseURL }

// Run executes the checks in order. Each run gets a fresh UUID; one
// failing check does not stop the rest.
func (s *Suite) Run(ctx context.Context, checks []Check) (*Summary, error) {
	runID := uuid.NewString()
	start := time.Now()

	summary := &Summary{RunID: runID, BaseURL: s.baseURL}

	s.logger.Info("starting run",
		"run_id", runID,
		"env", s.cfg.Env,
		"base_url", s.baseURL,
		"checks", len(checks),
	)

	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := s.runCheck(ctx, check)
		summary.Results = append(summary.Results, result)
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}

		s.record(ctx, runID, check, result)
	}

	summary.Duration = time.Since(start)
	s.logger.Info("run finished",
		"run_id", runID,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (s *Suite) runCheck(ctx context.Context, check Check) Result {
	policy := executor.Policy{
		Count: s.cfg.RetryCount,
		Delay: s.cfg.RetryInterval(),
	}

	req := executor.Request{
		Method:  check.Method,
		URL:     s.baseURL + check.Path,
		Headers: s.headers,
		Body:    check.Body,
		Timeout: s.cfg.Timeout(),
	}

	start := time.Now()
	resp, err := s.exec.Execute(ctx, req, policy)
	if err != nil {
		s.logger.Error("check failed", "check", check.Name, "error", err)
		result := Result{Check: check.Name, Duration: time.Since(start), Reason: err.Error()}
		// The exhaustion error knows how many attempts were made; the
		// summary and history should not claim zero.
		var exhausted *executor.TransportExhaustedError
		if errors.As(err, &exhausted) {
			result.Attempts = exhausted.Attempts
		}
		return result
	}

	result := Result{
		Check:    check.Name,
		Status:   resp.StatusCode,
		Attempts: resp.Attempts,
		Duration: resp.Duration,
	}

	if check.Observe {
		// Documentation-only probe: record what the API did, pass
		// regardless.
		result.Passed = true
		result.Observed = true
		s.logger.Info("observed", "check", check.Name, "status", resp.StatusCode)
		return result
	}

	if reason := s.assess(check, resp); reason != "" {
		result.Reason = reason
		s.logger.Error("check failed", "check", check.Name, "reason", reason)
		return result
	}

	result.Passed = true
	s.logger.Info("check passed",
		"check", check.Name,
		"status", resp.StatusCode,
		"attempts", resp.Attempts,
		"duration", resp.Duration,
	)
	return result
}

// assess applies the check's assertions to a received response and
// returns the first failure reason, or "" when everything holds.
func (s *Suite) assess(check Check, resp *executor.Response) string {
	if len(check.WantStatus) > 0 && !containsInt(check.WantStatus, resp.StatusCode) {
		return fmt.Sprintf("unexpected status %d, want one of %v", resp.StatusCode, check.WantStatus)
	}

	if check.CheckHeaders {
		if reason := assessHeaders(resp.Header); reason != "" {
			return reason
		}
	}

	if check.Schema != "" {
		outcome, err := s.validator.Validate(resp.Body, check.Schema)
		report.AttachValidation(s.sink, outcome)
		if err != nil {
			return err.Error()
		}
	}

	for _, field := range check.RequireFields {
		if !gjson.GetBytes(resp.Body, field).Exists() {
			return fmt.Sprintf("response missing field %q", field)
		}
	}

	if check.WantEmptyBody {
		trimmed := strings.TrimSpace(string(resp.Body))
		if trimmed != "{}" {
			return fmt.Sprintf("expected empty object body, got %q", truncate(trimmed, 120))
		}
	}

	// Latency is judged on the winning attempt alone; waiting out a
	// retry delay is not the server's fault.
	if check.CheckLatency && resp.Latency > s.cfg.Timeout() {
		return fmt.Sprintf("response time %v exceeded limit %v", resp.Latency, s.cfg.Timeout())
	}

	return ""
}

func assessHeaders(h http.Header) string {
	contentType := h.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return fmt.Sprintf("Content-Type %q is not application/json", contentType)
	}
	if h.Get("Date") == "" {
		return "Date header missing"
	}
	// Either framing header satisfies the contract.
	if h.Get("Content-Length") == "" && h.Get("Transfer-Encoding") == "" {
		return "neither Content-Length nor Transfer-Encoding present"
	}
	return ""
}

func (s *Suite) record(ctx context.Context, runID string, check Check, result Result) {
	if s.store == nil {
		return
	}
	err := s.store.Record(ctx, history.Entry{
		RunID:    runID,
		Check:    check.Name,
		Method:   check.Method,
		URL:      s.baseURL + check.Path,
		Status:   result.Status,
		Attempts: result.Attempts,
		Duration: result.Duration,
		Passed:   result.Passed,
		Reason:   result.Reason,
	})
	if err != nil {
		// History is an audit convenience, not a gate.
		s.logger.Warn("failed to record history", "check", check.Name, "error", err)
	}
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
