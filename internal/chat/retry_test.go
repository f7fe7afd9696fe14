package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota", errors.New("Quota Exceeded for project"), true},
		{"http 429", errors.New("request failed with status 429"), true},
		{"http 500", errors.New("500 internal server error"), true},
		{"http 503", errors.New("503 Service Unavailable"), true},
		{"unavailable", errors.New("model temporarily UNAVAILABLE"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"wrapped retryable", fmt.Errorf("calling model: %w", errors.New("429 too many requests")), true},
		{"auth failure", errors.New("invalid API key"), false},
		{"bad request", errors.New("400 invalid argument"), false},
		{"plain failure", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	assert.True(t, containsAny("Rate Limit hit", "rate limit"))
	assert.True(t, containsAny("abc", "x", "b"))
	assert.False(t, containsAny("abc", "x", "y"))
	assert.False(t, containsAny("", "x"))
}

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.MaxInterval)
}

func TestGenerateWithRetryRecovers(t *testing.T) {
	h := newTestHarness(t, nil)

	// First call fails with a retryable error, the retry succeeds.
	h.mock.EnqueueError(errors.New("503 service unavailable"))
	h.mock.EnqueueText("recovered")

	sess := newTestSession("s1")
	resp, err := h.agent.Execute(t.Context(), sess, "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.FinalText)
}

func TestGenerateWithRetryExhausted(t *testing.T) {
	h := newTestHarness(t, nil)
	h.mock.SetError(errors.New("429 too many requests"))

	sess := newTestSession("s1")
	_, err := h.agent.Execute(t.Context(), sess, "hello")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerateWithRetryNonRetryableFailsFast(t *testing.T) {
	h := newTestHarness(t, nil)
	h.mock.SetError(errors.New("invalid API key"))

	sess := newTestSession("s1")
	start := time.Now()
	_, err := h.agent.Execute(t.Context(), sess, "hello")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Less(t, elapsed, time.Second, "non-retryable errors must not back off")
}
