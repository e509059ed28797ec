package executor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"perfrunner/internal/target"

	"github.com/sirupsen/logrus"
)

// Kind classifies the result of a single call.
type Kind string

const (
	KindSuccess      Kind = "success"
	KindHTTPError    Kind = "http_error"
	KindNetworkError Kind = "network_error"
	KindTimeout      Kind = "timeout"
)

// Outcome is the immutable record of one dispatched call.
type Outcome struct {
	StartedAt   time.Time `json:"started_at"`
	LatencyMS   float64   `json:"latency_ms"`
	Kind        Kind      `json:"kind"`
	StatusCode  int       `json:"status_code,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// Failed reports whether the outcome counts against the success rate.
func (o Outcome) Failed() bool {
	return o.Kind != KindSuccess
}

// Executor performs single HTTP calls against a target. All failure modes are
// absorbed into the returned Outcome; Execute never returns an error.
type Executor struct {
	client  *http.Client
	timeout time.Duration
}

// New creates an executor with a pooled transport sized for concurrent load.
// perCallTimeout bounds each individual call.
func New(perCallTimeout time.Duration) *Executor {
	return &Executor{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: perCallTimeout,
	}
}

// Execute issues one call and classifies the result. Latency covers request
// issue through response body drain, measured on the monotonic clock.
func (e *Executor) Execute(ctx context.Context, tgt target.Target) Outcome {
	startedAt := time.Now()

	req, err := e.buildRequest(ctx, tgt)
	if err != nil {
		return Outcome{
			StartedAt:   startedAt,
			LatencyMS:   millisSince(startedAt),
			Kind:        KindNetworkError,
			ErrorDetail: err.Error(),
		}
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	req = req.WithContext(callCtx)

	resp, err := e.client.Do(req)
	if err != nil {
		latency := millisSince(startedAt)
		kind := KindNetworkError
		if isTimeout(err, callCtx) {
			kind = KindTimeout
		}
		return Outcome{
			StartedAt:   startedAt,
			LatencyMS:   latency,
			Kind:        kind,
			ErrorDetail: err.Error(),
		}
	}

	// Drain the body so the connection returns to the pool and latency
	// reflects the full response transfer.
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	latency := millisSince(startedAt)

	out := Outcome{
		StartedAt:  startedAt,
		LatencyMS:  latency,
		StatusCode: resp.StatusCode,
	}

	switch {
	case copyErr != nil:
		out.Kind = KindNetworkError
		out.ErrorDetail = copyErr.Error()
		if isTimeout(copyErr, callCtx) {
			out.Kind = KindTimeout
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		out.Kind = KindSuccess
	default:
		out.Kind = KindHTTPError
		out.ErrorDetail = "HTTP " + resp.Status
	}

	if closeErr != nil {
		logrus.WithError(closeErr).Debug("Failed to close response body")
	}

	return out
}

func (e *Executor) buildRequest(ctx context.Context, tgt target.Target) (*http.Request, error) {
	var body io.Reader
	if tgt.BodyTemplate != "" {
		body = strings.NewReader(tgt.BodyTemplate)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(tgt.Method), tgt.URL(), body)
	if err != nil {
		return nil, err
	}

	for key, value := range tgt.Headers {
		req.Header.Set(key, value)
	}
	if tgt.BodyTemplate != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if tgt.Tokens != nil {
		token, err := tgt.Tokens.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// isTimeout separates deadline expiry from other transport failures.
func isTimeout(err error, ctx context.Context) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return ctx.Err() == context.DeadlineExceeded
}

func millisSince(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}
