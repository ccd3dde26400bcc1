package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/id"
)

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}
	boom := errors.New("boom")
	failing := PublisherFunc(func(context.Context, Event) error { return boom })

	m := Multi{first, nil, failing, second}
	ev := New(id.New(), AggregatePaymentOut, id.New(), PaymentOutCreated, "u1", map[string]string{"number": "EGR-000001"})

	err := m.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{PaymentOutCreated}, first.Types())
	assert.Equal(t, []string{PaymentOutCreated}, second.Types())
}

func TestRecorder_Reset(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{EventType: GoodsReceiptCreated}))
	assert.Len(t, r.Events(), 1)
	r.Reset()
	assert.Empty(t, r.Events())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop.Publish(context.Background(), Event{}))
}
