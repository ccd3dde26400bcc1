package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/domain/events"
)

func TestActionFromEventType(t *testing.T) {
	cases := map[string]AuditAction{
		events.GoodsReceiptCreated:       AuditActionCreate,
		events.PurchaseBillRecorded:      AuditActionCreate,
		events.PurchaseBillVoided:        AuditActionVoid,
		events.PurchaseOrderCancelled:    AuditActionCancel,
		events.PurchaseOrderLinesUpdated: AuditActionUpdate,
		"weird":                          AuditActionUpdate,
	}
	for in, want := range cases {
		assert.Equal(t, want, ActionFromEventType(in), in)
	}
}

func TestAuditService_CompressRoundTrip(t *testing.T) {
	svc, err := NewAuditService()
	require.NoError(t, err)
	svc.WithCompressThreshold(64)

	small := AuditEntry{Changes: []byte(`{"a":1}`)}
	svc.compress(&small)
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
	assert.Nil(t, small.ChangesCompressed)

	payload := bytes.Repeat([]byte(`{"line":"0001","qty":"10.0000"}`), 20)
	big := AuditEntry{Changes: append([]byte(nil), payload...)}
	svc.compress(&big)
	assert.Equal(t, CompressionZstd, big.CompressionAlgo)
	assert.Nil(t, big.Changes)
	assert.Less(t, len(big.ChangesCompressed), len(payload))

	require.NoError(t, svc.decompress(&big))
	assert.Equal(t, payload, []byte(big.Changes))
}
