// Package event carries the storage domain events the service layer
// publishes after a mutation commits: deposits, withdrawals, exchanges
// and consumption. Handlers run synchronously on the in-memory bus;
// hosts needing fan-out subscribe their own dispatchers.
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/stockpile/internal/metrics"
)

// EventSchemaVersion is stamped on every published event.
const EventSchemaVersion = "1.0"

// Type represents the type of an event.
type Type string

// Storage event types
const (
	DepositCompleted  Type = "stash.deposit.completed"
	WithdrawCompleted Type = "stash.withdraw.completed"
	ExchangeCompleted Type = "stash.exchange.completed"
	MoveCompleted     Type = "stash.move.completed"
	ConsumeCompleted  Type = "stash.consume.completed"
	ContainerCreated  Type = "stash.container.created"
)

// Event represents a generic event in the system.
type Event struct {
	Version string `json:"version"`
	Type    Type   `json:"type"`
	Payload any    `json:"payload"`
}

// Typed event payloads

// StackMovedPayloadV1 describes quantity moved into or out of a
// container slot.
type StackMovedPayloadV1 struct {
	ContainerID string `json:"container_id"`
	Slot        int    `json:"slot,omitempty"`
	TypeID      int    `json:"type_id"`
	Quantity    int    `json:"quantity"`
	Remainder   int    `json:"remainder,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// ContainerCreatedPayloadV1 describes a freshly provisioned container.
type ContainerCreatedPayloadV1 struct {
	ContainerID string `json:"container_id"`
	Name        string `json:"name"`
	SlotCount   int    `json:"slot_count"`
	Timestamp   int64  `json:"timestamp"`
}

// NewStackMovedEvent creates a movement event with a typed payload.
func NewStackMovedEvent(eventType Type, containerID string, slot, typeID, quantity, remainder int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    eventType,
		Payload: StackMovedPayloadV1{
			ContainerID: containerID,
			Slot:        slot,
			TypeID:      typeID,
			Quantity:    quantity,
			Remainder:   remainder,
			Timestamp:   time.Now().Unix(),
		},
	}
}

// NewContainerCreatedEvent creates a provisioning event.
func NewContainerCreatedEvent(containerID, name string, slotCount int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ContainerCreated,
		Payload: ContainerCreatedPayloadV1{
			ContainerID: containerID,
			Name:        name,
			SlotCount:   slotCount,
			Timestamp:   time.Now().Unix(),
		},
	}
}

// Handler is a function that handles an event.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the event Bus.
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers synchronously. Handler
// errors are collected, not short-circuited, so every subscriber sees
// the event.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handler error(s) for %s: %v", len(errs), event.Type, errs)
	}
	return nil
}

// Subscribe subscribes a handler to an event type.
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
