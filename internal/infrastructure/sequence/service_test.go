package sequence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	coresequence "procurement/internal/core/sequence"
)

// Mock objects
type mockRow struct {
	val        *int64
	prefix     *string
	fiscalYear *int
	err        error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	*(dest[0].(**int64)) = m.val
	*(dest[1].(**string)) = m.prefix
	*(dest[2].(**int)) = m.fiscalYear
	return nil
}

// mockQuerier simulates the company_settings row: one counter per (tenant, column).
type mockQuerier struct {
	mu         sync.Mutex
	counters   map[string]int64
	prefix     string
	fiscalYear int
	lastSQL    string
	err        error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{counters: make(map[string]int64), prefix: "EGR-", fiscalYear: 2024}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSQL = sql
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	col := ""
	for _, c := range []string{colPayment, colIVA, colISLR, colOrder} {
		if strings.Contains(sql, "SET "+c) {
			col = c
		}
	}
	key := args[0].(id.ID).String() + ":" + col
	if _, ok := m.counters[key]; !ok {
		m.counters[key] = 1
	}
	issued := m.counters[key]
	m.counters[key]++

	prefix := m.prefix
	fy := m.fiscalYear
	return &mockRow{val: &issued, prefix: &prefix, fiscalYear: &fy}
}

func TestNextPaymentNumber_Sequential(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	tenantID := id.New()

	first, err := svc.NextPaymentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "EGR-000001", first)

	second, err := svc.NextPaymentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "EGR-000002", second)

	assert.Contains(t, q.lastSQL, "ON CONFLICT (tenant_id) DO UPDATE")
	assert.Contains(t, q.lastSQL, "RETURNING next_payment_number - 1")
}

func TestNextPaymentNumber_TenantsAreIndependent(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()

	a, err := svc.NextPaymentNumber(ctx, id.New())
	require.NoError(t, err)
	b, err := svc.NextPaymentNumber(ctx, id.New())
	require.NoError(t, err)

	assert.Equal(t, "EGR-000001", a)
	assert.Equal(t, "EGR-000001", b)
}

func TestNextPaymentNumber_EmptyPrefixFallsBack(t *testing.T) {
	q := newMockQuerier()
	q.prefix = ""
	svc := New(q)

	num, err := svc.NextPaymentNumber(context.Background(), id.New())
	require.NoError(t, err)
	assert.Equal(t, coresequence.DefaultPaymentPrefix+"000001", num)
}

func TestNextRetentionNumber(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	tenantID := id.New()
	at := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	iva, err := svc.NextRetentionNumber(ctx, tenantID, coresequence.RetentionIVA, at)
	require.NoError(t, err)
	assert.Equal(t, "20240300000001", iva)
	assert.Contains(t, q.lastSQL, "next_iva_sequence")

	islr, err := svc.NextRetentionNumber(ctx, tenantID, coresequence.RetentionISLR, at)
	require.NoError(t, err)
	assert.Equal(t, "20240300000001", islr, "ISLR has its own counter")

	iva2, err := svc.NextRetentionNumber(ctx, tenantID, coresequence.RetentionIVA, at)
	require.NoError(t, err)
	assert.Equal(t, "20240300000002", iva2)
}

func TestNextRetentionNumber_UnknownKind(t *testing.T) {
	svc := New(newMockQuerier())
	_, err := svc.NextRetentionNumber(context.Background(), id.New(), "VAT", time.Now())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestNextOrderNumber(t *testing.T) {
	svc := New(newMockQuerier())
	num, err := svc.NextOrderNumber(context.Background(), id.New())
	require.NoError(t, err)
	assert.Equal(t, "OC-0001", num)
}

func TestIncrement_NullValueIsInvariantViolation(t *testing.T) {
	svc := New(nullQuerier{})
	_, err := svc.NextPaymentNumber(context.Background(), id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
}

func TestIncrement_QueryError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := New(q)

	_, err := svc.NextPaymentNumber(context.Background(), id.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIncrement_RequiresTenant(t *testing.T) {
	svc := New(newMockQuerier())
	_, err := svc.NextPaymentNumber(context.Background(), id.Nil())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestNextPaymentNumber_Concurrent(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	tenantID := id.New()

	const n = 50
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.NextPaymentNumber(ctx, tenantID)
			if err == nil {
				results <- num
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for num := range results {
		assert.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["EGR-000050"])
}

type nullQuerier struct{}

func (nullQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &mockRow{}
}
