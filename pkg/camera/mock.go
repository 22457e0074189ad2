package camera

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mock implements Device for testing.
// All methods can be customized via function fields.
type Mock struct {
	// PermissionFunc is called when RequestPermission is invoked.
	// If nil, permission is granted.
	PermissionFunc func(ctx context.Context) (bool, error)

	// CaptureFunc is called when Capture is invoked.
	// If nil, returns a small in-memory photo.
	CaptureFunc func(ctx context.Context, quality float64) (*Photo, error)

	// PreviewFunc is called when Preview is invoked.
	// If nil, returns a fixed payload.
	PreviewFunc func(ctx context.Context) ([]byte, error)

	mu     sync.Mutex
	facing Facing
	closed bool
	calls  []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	Quality float64
	Facing  Facing
	Time    time.Time
}

// NewMock creates a back-facing mock device.
func NewMock() *Mock {
	return &Mock{facing: FacingBack}
}

// RequestPermission calls PermissionFunc and records the call.
func (m *Mock) RequestPermission(ctx context.Context) (bool, error) {
	m.record("RequestPermission", 0)
	if m.PermissionFunc != nil {
		return m.PermissionFunc(ctx)
	}
	return true, nil
}

// Capture calls CaptureFunc and records the call.
func (m *Mock) Capture(ctx context.Context, quality float64) (*Photo, error) {
	m.record("Capture", quality)
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, quality)
	}
	id := uuid.NewString()
	return &Photo{
		ID:         id,
		URI:        "memory://photo/" + id,
		Data:       []byte{0xFF, 0xD8, 0xFF, 0xD9},
		Facing:     m.Facing(),
		CapturedAt: time.Now(),
	}, nil
}

// Preview calls PreviewFunc and records the call.
func (m *Mock) Preview(ctx context.Context) ([]byte, error) {
	m.record("Preview", 0)
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx)
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// SetFacing records the new facing.
func (m *Mock) SetFacing(f Facing) error {
	if !f.Valid() {
		return ErrUnknownFacing
	}
	m.mu.Lock()
	m.facing = f
	m.mu.Unlock()
	m.record("SetFacing", 0)
	return nil
}

// Facing returns the current facing.
func (m *Mock) Facing() Facing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facing
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.record("Close", 0)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls to the named method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *Mock) record(method string, quality float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:  method,
		Quality: quality,
		Facing:  m.facing,
		Time:    time.Now(),
	})
}

// Verify Mock implements Device at compile time.
var _ Device = (*Mock)(nil)
