package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verdictJSON = json.RawMessage(`{"correct":true,"confidence":0.9,"rationale":"names the motive"}`)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// bufferLogger captures text logs at debug level.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func gradeCtx() context.Context {
	return WithAttempt(WithPurpose(context.Background(), "grade-answer"), "att-7")
}

func TestRetry_Outcomes(t *testing.T) {
	unavailable := func() MockResponse { return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}} }
	invalid := func() MockResponse {
		return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{"correct":"yes"}`), Err: errors.New("schema")}}
	}

	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
		retries   int // "retrying LLM request" lines
		gaveUp    bool
	}{
		{
			name:      "first try",
			responses: []MockResponse{{Content: verdictJSON}},
			wantCalls: 1,
		},
		{
			name:      "transient then verdict",
			responses: []MockResponse{unavailable(), {Content: verdictJSON}},
			wantCalls: 2,
			retries:   1,
		},
		{
			name:      "rate limited then verdict",
			responses: []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, {Content: verdictJSON}},
			wantCalls: 2,
			retries:   1,
		},
		{
			name:      "provider stays down",
			responses: []MockResponse{unavailable(), unavailable(), unavailable()},
			wantCalls: 3,
			wantErr:   true,
			retries:   2,
			gaveUp:    true,
		},
		{
			name:      "truncated verdict is not retried",
			responses: []MockResponse{{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"correct":tr`)}}},
			wantCalls: 1,
			wantErr:   true,
			gaveUp:    true,
		},
		{
			name:      "schema violation retried once",
			responses: []MockResponse{invalid(), invalid(), {Content: verdictJSON}},
			wantCalls: 2,
			wantErr:   true,
			retries:   1,
			gaveUp:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, retryConfig(), logger)

			resp, err := p.Generate(gradeCtx(), Request{})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.JSONEq(t, string(verdictJSON), string(resp.Content))
			}
			assert.Equal(t, tt.wantCalls, mock.CallCount())

			logs := buf.String()
			assert.Equal(t, tt.retries, strings.Count(logs, `msg="retrying LLM request"`), logs)
			assert.Equal(t, tt.gaveUp, strings.Contains(logs, `msg="LLM request failed"`), logs)
		})
	}
}

func TestRetry_LogsThroughInjectedLogger(t *testing.T) {
	logger, buf := bufferLogger()
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("connection reset")}},
		MockResponse{Content: verdictJSON},
	)
	p := WithRetry(mock, retryConfig(), logger)

	_, err := p.Generate(gradeCtx(), Request{})
	require.NoError(t, err)

	logs := buf.String()
	for _, want := range []string{
		"level=DEBUG",
		"purpose=grade-answer",
		"attempt_id=att-7",
		"try=1",
		"connection reset",
	} {
		assert.Contains(t, logs, want)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	logger, buf := bufferLogger()
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: verdictJSON},
	)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: time.Second, Multiplier: 2}, logger)

	ctx, cancel := context.WithCancel(gradeCtx())
	cancel()

	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
	assert.Contains(t, buf.String(), "retrying LLM request")
}

func TestRetry_NilLoggerAndModelID(t *testing.T) {
	p := WithRetry(NewMockProvider(), RetryConfig{}, nil)
	assert.Equal(t, "mock", p.ModelID())

	_, err := p.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavailable, "zero MaxAttempts still makes one call")
}
