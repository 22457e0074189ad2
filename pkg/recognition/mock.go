package recognition

import (
	"context"
	"sync"
	"time"
)

// Mock implements Strategy for testing.
type Mock struct {
	// NameValue is returned by Name. Defaults to "mock".
	NameValue string

	// SubmitFunc is called when Submit is invoked.
	SubmitFunc func(ctx context.Context, req *Request) (*Result, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Bytes  int
	Time   time.Time
}

// NewMock creates a mock that recognizes every frame as token.
func NewMock(token string) *Mock {
	return &Mock{
		SubmitFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return &Result{Token: token, Strategy: "mock"}, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SubmitFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return nil, err
		},
	}
}

// Name returns NameValue or "mock".
func (m *Mock) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Submit calls SubmitFunc and records the call.
func (m *Mock) Submit(ctx context.Context, req *Request) (*Result, error) {
	n := 0
	if req != nil {
		n = len(req.Image)
	}
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Submit", Bytes: n, Time: time.Now()})
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return nil, WrapError(m.Name(), ErrNoStrategies)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of Submit calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify Mock implements Strategy at compile time.
var _ Strategy = (*Mock)(nil)
