package storage

import "github.com/osse101/stockpile/internal/domain"

// Policy is the sole extension surface of the engine. Implementations
// turn a plain storage into a chest, an equipment rack, a trash-only
// slot and so on without touching the slot-mutation core. Hooks must be
// pure and terminating; they are called on every relevant operation.
//
// Embed Permissive to override only the hooks a policy cares about.
type Policy interface {
	// SlotCapacity returns the maximum stack size the slot accepts for
	// this item kind. A negative value means unbounded and is clamped
	// to domain.MaxRepresentableStack; zero makes the slot reject the
	// item for stacking purposes entirely.
	SlotCapacity(slot int, it domain.Item) int

	// CanInsert gates placing or merging quantity into a slot.
	CanInsert(slot int, it domain.Item) bool

	// CanRemove gates taking quantity out of a slot.
	CanRemove(slot int) bool

	// CanInteract gates an operation for a specific user. The user
	// token is opaque: the engine passes it through untouched and never
	// inspects, stores or compares it.
	CanInteract(slot int, op domain.Operation, user any) bool
}

// Permissive is the default policy: every hook allows, and capacity is
// the item's own per-stack ceiling.
type Permissive struct{}

func (Permissive) SlotCapacity(_ int, it domain.Item) int { return it.MaxStack }

func (Permissive) CanInsert(int, domain.Item) bool { return true }

func (Permissive) CanRemove(int) bool { return true }

func (Permissive) CanInteract(int, domain.Operation, any) bool { return true }
