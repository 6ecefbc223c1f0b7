// Package policy provides reusable storage.Policy implementations for
// the common container archetypes: filtered chests, locked slots,
// take-only output rows and per-slot capacity overrides. Policies embed
// storage.Permissive and override only the hooks they care about, so
// they compose by wrapping.
package policy

import (
	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/storage"
)

// Filtered admits only items the predicate accepts, per slot. A nil
// predicate admits everything.
type Filtered struct {
	storage.Permissive
	Allow func(slot int, it domain.Item) bool
}

func (p Filtered) CanInsert(slot int, it domain.Item) bool {
	if p.Allow == nil {
		return true
	}
	return p.Allow(slot, it)
}

// Locked refuses all interaction with the listed slots regardless of
// user, the building block for equipment slots revealed by progression.
type Locked struct {
	storage.Permissive
	Slots map[int]bool
}

func (p Locked) CanInteract(slot int, _ domain.Operation, _ any) bool {
	return !p.Slots[slot]
}

// TakeOnly permits removal but never insertion on the listed slots,
// e.g. a crafting-result row.
type TakeOnly struct {
	storage.Permissive
	Slots map[int]bool
}

func (p TakeOnly) CanInsert(slot int, _ domain.Item) bool {
	return !p.Slots[slot]
}

func (p TakeOnly) CanInteract(slot int, op domain.Operation, _ any) bool {
	// a swap both inserts and removes, so it is barred too
	return !(p.Slots[slot] && op.Has(domain.OpInput))
}

// CapacityOverride fixes the capacity of individual slots independently
// of the item's own per-stack ceiling. Slots without an entry fall back
// to the item's MaxStack. A negative override means unbounded.
type CapacityOverride struct {
	storage.Permissive
	Caps map[int]int
}

func (p CapacityOverride) SlotCapacity(slot int, it domain.Item) int {
	if override, ok := p.Caps[slot]; ok {
		return override
	}
	return it.MaxStack
}

// Owned restricts interaction to a single owner token. The token is
// compared with ==, matching how the service layer passes user IDs
// through; the engine itself never inspects it.
type Owned struct {
	storage.Permissive
	Owner any
}

func (p Owned) CanInteract(_ int, _ domain.Operation, user any) bool {
	return p.Owner == nil || user == p.Owner
}
