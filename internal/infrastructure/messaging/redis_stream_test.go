package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/id"
	"procurement/internal/infrastructure/storage/postgres"
)

type fakeClient struct {
	markers map[string]bool
	added   []*redis.XAddArgs
	addErr  error
	deleted []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{markers: make(map[string]bool)}
}

func (c *fakeClient) SetNX(_ context.Context, key string, _ any, _ time.Duration) *redis.BoolCmd {
	if c.markers[key] {
		return redis.NewBoolResult(false, nil)
	}
	c.markers[key] = true
	return redis.NewBoolResult(true, nil)
}

func (c *fakeClient) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	if c.addErr != nil {
		return redis.NewStringResult("", c.addErr)
	}
	c.added = append(c.added, a)
	return redis.NewStringResult("1700000000000-0", nil)
}

func (c *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(c.markers, k)
		c.deleted = append(c.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func message() *postgres.OutboxMessage {
	return &postgres.OutboxMessage{
		ID:            id.New(),
		TenantID:      id.New(),
		AggregateType: "payment_out",
		AggregateID:   id.New(),
		EventType:     "payment_out.created",
		Payload:       []byte(`{"number":"EGR-000001"}`),
		CreatedAt:     time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandle_AppendsOnce(t *testing.T) {
	client := newFakeClient()
	pub := NewRedisStreamPublisher(client, "")
	msg := message()

	require.NoError(t, pub.Handle(context.Background(), msg))
	require.NoError(t, pub.Handle(context.Background(), msg))

	require.Len(t, client.added, 1)
	add := client.added[0]
	assert.Equal(t, DefaultStream, add.Stream)
	values := add.Values.(map[string]any)
	assert.Equal(t, "payment_out.created", values["event_type"])
	assert.Equal(t, msg.TenantID.String(), values["tenant_id"])
	assert.Equal(t, `{"number":"EGR-000001"}`, values["payload"])
	assert.Equal(t, "2026-03-15T10:00:00Z", values["created_at"])
}

func TestHandle_FailureClearsMarker(t *testing.T) {
	client := newFakeClient()
	client.addErr = errors.New("connection refused")
	pub := NewRedisStreamPublisher(client, "custom")
	msg := message()

	err := pub.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom")
	assert.Len(t, client.deleted, 1)

	client.addErr = nil
	require.NoError(t, pub.Handle(context.Background(), msg))
	assert.Len(t, client.added, 1)
}
