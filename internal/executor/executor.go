// Package executor dispatches HTTP requests with bounded
// retry-on-transient-failure semantics.
//
// Only transport-layer failures (connection refused/reset, timeout,
// DNS, TLS) are retried, with a fixed delay between attempts. A
// received HTTP response of any status — 4xx and 5xx included — is a
// business outcome and is returned as-is on the first attempt.
// Retrying a server that deterministically answers with an error
// status would mask real contract violations.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"apicheck/internal/httpclient"
)

// DefaultTimeout bounds a single attempt when neither the request nor
// the configuration says otherwise.
const DefaultTimeout = 10 * time.Second

// Policy is the retry policy for one logical exchange.
type Policy struct {
	// Count is the total number of attempts; 1 means no retry.
	Count int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultPolicy returns the documented default of one attempt with a
// one second delay.
func DefaultPolicy() Policy {
	return Policy{Count: 1, Delay: time.Second}
}

func (p Policy) normalized() Policy {
	if p.Count < 1 {
		p.Count = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Request describes one HTTP call. It is constructed per call and not
// retained after dispatch.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout bounds each individual attempt; zero means DefaultTimeout.
	Timeout time.Duration
}

// Response is the terminal outcome of a successful exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body is the raw (decompressed) response body.
	Body []byte
	// Attempts is how many dispatches it took to get this response.
	Attempts int
	// Duration covers the whole exchange including retry waits.
	Duration time.Duration
	// Latency is the elapsed time of the winning attempt alone,
	// excluding earlier attempts and the delays between them.
	Latency time.Duration
}

// ExchangeRecord captures one full exchange for reporting, including
// the attempts that led to the final outcome.
type ExchangeRecord struct {
	Request    Request
	StatusCode int
	Header     http.Header
	Body       string
	Attempts   int
	Duration   time.Duration
	// Err holds the terminal transport error when the exchange
	// exhausted its attempts without a response.
	Err string
}

// TransportExhaustedError is returned when every attempt failed at the
// transport layer. It carries the terminal underlying cause.
type TransportExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *TransportExhaustedError) Error() string {
	return fmt.Sprintf("transport exhausted after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *TransportExhaustedError) Unwrap() error { return e.Cause }

// Hooks let callers observe exchanges without the executor knowing
// about any particular reporting backend. Hook panics or slow hooks
// are the caller's problem; a nil hook is skipped.
type Hooks struct {
	// OnExchange fires after every completed exchange, successful or
	// exhausted.
	OnExchange func(*ExchangeRecord)
}

// Executor dispatches requests over a shared HTTP client.
type Executor struct {
	client *http.Client
	hooks  Hooks
}

// New creates an Executor. A nil client gets the default shared client.
func New(client *http.Client, hooks Hooks) *Executor {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &Executor{client: client, hooks: hooks}
}

// Execute runs one logical exchange under the given policy.
//
// Transport failures are retried after policy.Delay until the attempt
// budget is spent, then surfaced as *TransportExhaustedError. A
// received HTTP response terminates the exchange immediately whatever
// its status. Context cancellation is honored both mid-attempt and
// mid-delay.
func (e *Executor) Execute(ctx context.Context, req Request, policy Policy) (*Response, error) {
	policy = policy.normalized()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= policy.Count; attempt++ {
		if attempt > 1 {
			retriesTotal.Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}

		attemptsTotal.Inc()
		attemptStart := time.Now()
		resp, err := e.attempt(ctx, req)
		if err != nil {
			lastErr = err
			// The caller giving up is terminal, not transient.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		resp.Attempts = attempt
		resp.Duration = time.Since(start)
		resp.Latency = time.Since(attemptStart)
		e.notify(&ExchangeRecord{
			Request:    req,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       string(resp.Body),
			Attempts:   resp.Attempts,
			Duration:   resp.Duration,
		})
		return resp, nil
	}

	exhaustedTotal.Inc()
	err := &TransportExhaustedError{Attempts: policy.Count, Cause: lastErr}
	e.notify(&ExchangeRecord{
		Request:  req,
		Attempts: policy.Count,
		Duration: time.Since(start),
		Err:      err.Error(),
	})
	return nil, err
}

// attempt performs a single dispatch.
func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if decoded, ok := decodeBody(body, httpResp.Header.Get("Content-Encoding")); ok {
		body = decoded
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}, nil
}

func (e *Executor) notify(rec *ExchangeRecord) {
	if e.hooks.OnExchange != nil {
		e.hooks.OnExchange(rec)
	}
}
