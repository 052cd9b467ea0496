// Package report records request/response detail pairs as named
// artifacts for later inspection. The core treats every sink as
// best-effort: a failing sink never fails a check.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"apicheck/internal/executor"
	"apicheck/internal/validate"
)

// ContentType tells the sink how an attachment should be rendered.
type ContentType string

const (
	ContentTypeText ContentType = "text/plain"
	ContentTypeJSON ContentType = "application/json"
)

// Sink accepts named attachments. Implementations must tolerate
// duplicate names; the core relies on no return value beyond error.
type Sink interface {
	Attach(name, content string, kind ContentType) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Attach(string, string, ContentType) error { return nil }

// FileSink writes each attachment as a file under a reports directory.
type FileSink struct {
	dir string

	mu  sync.Mutex
	seq map[string]int
}

// NewFileSink creates the reports directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir, seq: make(map[string]int)}, nil
}

// Dir returns the sink's reports directory.
func (s *FileSink) Dir() string { return s.dir }

// Attach writes content to a file derived from name. Repeated names
// get a numeric suffix so earlier attachments are never clobbered.
func (s *FileSink) Attach(name, content string, kind ContentType) error {
	ext := ".txt"
	if kind == ContentTypeJSON {
		ext = ".json"
	}

	s.mu.Lock()
	s.seq[name]++
	n := s.seq[name]
	s.mu.Unlock()

	base := sanitize(name)
	if n > 1 {
		base = fmt.Sprintf("%s-%d", base, n)
	}

	path := filepath.Join(s.dir, base+ext)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing attachment %s: %w", name, err)
	}
	return nil
}

func sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if mapped == "" {
		mapped = "attachment"
	}
	return strings.ToLower(mapped)
}

// AttachExchange offers the raw request and response of one exchange
// to the sink. Sink errors are logged and swallowed.
func AttachExchange(sink Sink, rec *executor.ExchangeRecord) {
	if sink == nil || rec == nil {
		return
	}

	var req strings.Builder
	fmt.Fprintf(&req, "%s %s\n\n", rec.Request.Method, rec.Request.URL)
	req.WriteString("Headers:\n")
	writeHeaderMap(&req, rec.Request.Headers)
	fmt.Fprintf(&req, "\nBody:\n%s\n", string(rec.Request.Body))
	attach(sink, "Request Details", req.String(), ContentTypeText)

	var resp strings.Builder
	if rec.Err != "" {
		fmt.Fprintf(&resp, "Transport Error: %s\n\nAttempts: %d\n", rec.Err, rec.Attempts)
	} else {
		fmt.Fprintf(&resp, "Status Code: %d\n\n", rec.StatusCode)
		resp.WriteString("Headers:\n")
		keys := make([]string, 0, len(rec.Header))
		for k := range rec.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&resp, "  %s: %s\n", k, strings.Join(rec.Header[k], ", "))
		}
		fmt.Fprintf(&resp, "\nBody:\n%s\n", rec.Body)
	}
	attach(sink, "Response Details", resp.String(), ContentTypeText)
}

// AttachValidation offers a validation outcome to the sink.
func AttachValidation(sink Sink, outcome validate.Outcome) {
	if sink == nil {
		return
	}
	content, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return
	}
	attach(sink, "Schema Validation", string(content), ContentTypeJSON)
}

func attach(sink Sink, name, content string, kind ContentType) {
	if err := sink.Attach(name, content, kind); err != nil {
		slog.Warn("report attachment failed", "name", name, "error", err)
	}
}

func writeHeaderMap(b *strings.Builder, headers map[string]string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %s\n", k, headers[k])
	}
}

// WriteEnvironmentProperties records run context alongside the
// attachments as a java-properties style file, so report viewers can
// show which environment a run targeted.
func WriteEnvironmentProperties(dir, baseURL string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	content := fmt.Sprintf("BaseURL=%s\nFramework=API Conformance Checker\nLanguage=Go\n", baseURL)
	return os.WriteFile(filepath.Join(dir, "environment.properties"), []byte(content), 0o644)
}
