// Package events defines the domain events emitted by procurement operations.
// Events are published inside the business transaction; sinks that write to the
// database (outbox, audit journal) commit or roll back together with it.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"procurement/internal/core/id"
)

// Aggregate types.
const (
	AggregatePurchaseOrder = "purchase_order"
	AggregateGoodsReceipt  = "goods_receipt"
	AggregatePurchaseBill  = "purchase_bill"
	AggregatePaymentOut    = "payment_out"
	AggregateSettings      = "company_settings"
	AggregateProduct       = "product"
	AggregateSupplier      = "supplier"
)

// Event types.
const (
	PurchaseOrderCreated      = "purchase_order.created"
	PurchaseOrderLinesUpdated = "purchase_order.lines_updated"
	PurchaseOrderCancelled    = "purchase_order.cancelled"
	GoodsReceiptCreated       = "goods_receipt.created"
	PurchaseBillRecorded      = "purchase_bill.recorded"
	PurchaseBillVoided        = "purchase_bill.voided"
	PaymentOutCreated         = "payment_out.created"
	SettingsUpdated           = "company_settings.updated"
	ProductCreated            = "product.created"
	SupplierCreated           = "supplier.created"
)

// Event is a fact about an aggregate.
type Event struct {
	TenantID      id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	UserID        string
	Payload       any
	OccurredAt    time.Time
}

// New builds an event stamped with the current time.
func New(tenantID id.ID, aggregateType string, aggregateID id.ID, eventType, userID string, payload any) Event {
	return Event{
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		UserID:        userID,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher receives events. Implementations that persist must use the
// transaction carried by ctx.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards events.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
