package executor

import (
	"context"
	"slices"
	"sync"
)

// MockHandler serves a fixed set of records through Select and records every
// request for assertions in tests.
type MockHandler struct {
	mu      sync.Mutex
	records []Record
	err     error
	calls   []Request
}

// NewMockHandler returns a MockHandler serving records.
func NewMockHandler(records ...Record) *MockHandler {
	return &MockHandler{records: records}
}

// NewMockErrorHandler returns a MockHandler that always fails with err.
func NewMockErrorHandler(err error) *MockHandler {
	return &MockHandler{err: err}
}

func (m *MockHandler) Resolve(ctx context.Context, req Request) ([]Record, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cloneRequest(req))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Select(m.records, req), nil
}

// Calls returns the requests received so far.
func (m *MockHandler) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func cloneRequest(req Request) Request {
	c := Request{Type: req.Type, Attributes: slices.Clone(req.Attributes)}
	if req.Filter != nil {
		c.Filter = make(map[string]any, len(req.Filter))
		for k, v := range req.Filter {
			c.Filter[k] = v
		}
	}
	return c
}
