package sequence

import (
	"context"
	"sync"
	"time"

	"procurement/internal/core/id"
)

// MockGenerator is a test implementation of Generator.
// Func fields override the default in-memory counters.
type MockGenerator struct {
	NextPaymentNumberFunc   func(ctx context.Context, tenantID id.ID) (string, error)
	NextRetentionNumberFunc func(ctx context.Context, tenantID id.ID, kind RetentionKind, at time.Time) (string, error)
	NextOrderNumberFunc     func(ctx context.Context, tenantID id.ID) (string, error)

	mu       sync.Mutex
	counters map[string]int64
}

func (m *MockGenerator) next(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[key]++
	return m.counters[key]
}

// NextPaymentNumber implements Generator.
func (m *MockGenerator) NextPaymentNumber(ctx context.Context, tenantID id.ID) (string, error) {
	if m.NextPaymentNumberFunc != nil {
		return m.NextPaymentNumberFunc(ctx, tenantID)
	}
	return FormatPaymentNumber(DefaultPaymentPrefix, m.next(tenantID.String()+":payment")), nil
}

// NextRetentionNumber implements Generator.
func (m *MockGenerator) NextRetentionNumber(ctx context.Context, tenantID id.ID, kind RetentionKind, at time.Time) (string, error) {
	if m.NextRetentionNumberFunc != nil {
		return m.NextRetentionNumberFunc(ctx, tenantID, kind, at)
	}
	return FormatRetentionNumber(at.Year(), at, m.next(tenantID.String()+":"+string(kind))), nil
}

// NextOrderNumber implements Generator.
func (m *MockGenerator) NextOrderNumber(ctx context.Context, tenantID id.ID) (string, error) {
	if m.NextOrderNumberFunc != nil {
		return m.NextOrderNumberFunc(ctx, tenantID)
	}
	return FormatOrderNumber(m.next(tenantID.String() + ":order")), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
