package recognition

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recordingHandler captures log records for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) atLeast(level slog.Level) []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []slog.Record
	for _, r := range h.records {
		if r.Level >= level {
			out = append(out, r)
		}
	}
	return out
}

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	failing := WithError(errors.New("upload rejected"))
	failing.NameValue = "primary"
	working := NewMock("HELLO")

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}

	res, err := chain.Submit(ctx, NewRequest(testJPEG))
	if err != nil {
		t.Fatalf("Chain submit failed: %v", err)
	}
	if res.Token != "HELLO" {
		t.Errorf("Unexpected token: %s", res.Token)
	}
	if failing.CallCount() != 1 || working.CallCount() != 1 {
		t.Errorf("Expected one call each, got %d and %d", failing.CallCount(), working.CallCount())
	}
}

func TestChainPrimarySuccessSkipsFallback(t *testing.T) {
	primary := NewMock("HELLO")
	fallback := NewMock("WORLD")

	chain, _ := NewChain(primary, fallback)
	res, err := chain.Submit(context.Background(), NewRequest(testJPEG))
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "HELLO" {
		t.Errorf("Expected primary token, got %s", res.Token)
	}
	if fallback.CallCount() != 0 {
		t.Error("Fallback should not be called when primary succeeds")
	}
}

func TestChainAllFailLogsEachFailureOnce(t *testing.T) {
	h := &recordingHandler{}
	p1 := WithError(errors.New("primary failed"))
	p2 := WithError(errors.New("fallback failed"))

	chain, _ := NewChainWithLogger(slog.New(h), p1, p2)

	_, err := chain.Submit(context.Background(), NewRequest(testJPEG))
	if err == nil {
		t.Fatal("Expected error when all strategies fail")
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(chainErr.Errors))
	}

	records := h.atLeast(slog.LevelWarn)
	if len(records) != 2 {
		t.Fatalf("Expected 2 log records, got %d", len(records))
	}
	if records[0].Level != slog.LevelWarn || records[1].Level != slog.LevelError {
		t.Errorf("Expected warn then error, got %v then %v", records[0].Level, records[1].Level)
	}
}

func TestChainErrorUnwrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	chain, err := New(
		WithBaseURL(server.URL),
		WithLogger(slog.New(&recordingHandler{})),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = chain.Submit(context.Background(), NewRequest(testJPEG))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError inside chain error, got %v", err)
	}
	if !apiErr.IsServerError() || apiErr.Strategy != StrategyMultipart {
		t.Errorf("Unexpected APIError: %+v", apiErr)
	}
}

func TestChainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	primary := &Mock{SubmitFunc: func(ctx context.Context, req *Request) (*Result, error) {
		cancel()
		return nil, ctx.Err()
	}}
	fallback := NewMock("HELLO")

	chain, _ := NewChainWithLogger(slog.New(&recordingHandler{}), primary, fallback)
	_, err := chain.Submit(ctx, NewRequest(testJPEG))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if fallback.CallCount() != 0 {
		t.Error("Fallback should not run after cancellation")
	}
}

func TestChainNoStrategies(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrNoStrategies) {
		t.Errorf("Expected ErrNoStrategies, got %v", err)
	}
	if _, err := NewChain(nil, nil); !errors.Is(err, ErrNoStrategies) {
		t.Errorf("Expected ErrNoStrategies for nil entries, got %v", err)
	}
}

func TestMockCalls(t *testing.T) {
	m := NewMock("A")
	m.Submit(context.Background(), NewRequest(testJPEG))
	m.Submit(context.Background(), nil)

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(calls))
	}
	if calls[0].Bytes != len(testJPEG) || calls[1].Bytes != 0 {
		t.Errorf("Unexpected call sizes: %+v", calls)
	}
}
