package client

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorClass
	}{
		{"not found", 404, ErrorClassClient},
		{"unprocessable", 422, ErrorClassClient},
		{"forbidden maps to rate limit", 403, ErrorClassRateLimit},
		{"too many requests", 429, ErrorClassRateLimit},
		{"internal error", 500, ErrorClassServer},
		{"bad gateway", 502, ErrorClassServer},
		{"service unavailable", 503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	apiErr := &APIError{StatusCode: 502, ErrorClass: ErrorClassServer}
	if got := classify(apiErr); got != ErrorClassServer {
		t.Errorf("classify(APIError 502) = %q, want %q", got, ErrorClassServer)
	}

	wrapped := errors.Join(errors.New("outer"), apiErr)
	if got := classify(wrapped); got != ErrorClassServer {
		t.Errorf("classify(wrapped APIError) = %q, want %q", got, ErrorClassServer)
	}

	if got := classify(errors.New("connection refused")); got != ErrorClassNetwork {
		t.Errorf("classify(plain error) = %q, want %q", got, ErrorClassNetwork)
	}
}

func TestAPIError(t *testing.T) {
	inner := errors.New("boom")
	err := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		URL:        "https://api.github.com/repos/o/r/issues",
		Message:    "server error",
		Err:        inner,
	}

	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap did not expose the inner error")
	}

	var target *APIError
	if !errors.As(error(err), &target) {
		t.Error("errors.As failed to match *APIError")
	}
	if target.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", target.StatusCode)
	}
}
