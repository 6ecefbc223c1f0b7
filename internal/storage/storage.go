// Package storage implements the slotted item storage engine: a
// fixed-capacity array of slots, each holding zero or one stack, with
// policy-extensible rules for inserting, removing, merging, splitting
// and swapping stacks. Total quantity is conserved across every
// operation; the only hard error is a slot index outside the storage.
//
// A Storage has no internal locking. The caller serializes access to
// one instance (see the concurrency package for the named-lock
// discipline the service layer uses).
package storage

import (
	"fmt"

	"github.com/osse101/stockpile/internal/domain"
)

// Storage is an ordered, fixed-length sequence of item stacks. Every
// index always holds a valid item value, air or otherwise. Resizing is
// not supported; construct a new storage instead.
type Storage struct {
	items     []domain.Item
	policy    Policy
	events    Events
	stackable func(a, b domain.Item) bool
}

// Option configures a storage at construction.
type Option func(*Storage)

// WithPolicy installs the access-control and capacity hooks.
func WithPolicy(p Policy) Option {
	return func(s *Storage) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithEvents installs the pre-commit observer callbacks.
func WithEvents(e Events) Option {
	return func(s *Storage) { s.events = e }
}

// WithStackPredicate replaces the stack-compatibility predicate. The
// predicate must be deterministic and total; air never reaches it.
func WithStackPredicate(fn func(a, b domain.Item) bool) Option {
	return func(s *Storage) {
		if fn != nil {
			s.stackable = fn
		}
	}
}

// New creates a storage of size air slots.
func New(size int, opts ...Option) *Storage {
	if size < 0 {
		size = 0
	}
	return NewFromItems(make([]domain.Item, size), opts...)
}

// NewFromItems adopts the supplied slice by reference, not copied.
// Malformed entries (negative quantity) are normalized to air so the
// every-slot-holds-a-valid-item invariant holds from the start.
func NewFromItems(items []domain.Item, opts ...Option) *Storage {
	s := &Storage{
		items:     items,
		policy:    Permissive{},
		stackable: domain.SameKind,
	}
	for i := range s.items {
		s.items[i] = sanitize(s.items[i])
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the fixed slot count.
func (s *Storage) Size() int {
	return len(s.items)
}

// At returns the item held by the slot.
func (s *Storage) At(slot int) (domain.Item, error) {
	if err := s.checkSlot(slot); err != nil {
		return domain.Air(), err
	}
	return s.items[slot], nil
}

// Items returns a copy of the slot sequence.
func (s *Storage) Items() []domain.Item {
	out := make([]domain.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Clone produces a fully independent deep copy sharing the same policy,
// events and predicate. Mutating the clone never aliases the original;
// this is the snapshot mechanism for transactional edits.
func (s *Storage) Clone() *Storage {
	items := make([]domain.Item, len(s.items))
	copy(items, s.items)
	return &Storage{
		items:     items,
		policy:    s.policy,
		events:    s.events,
		stackable: s.stackable,
	}
}

// SimulateFit computes, without mutating state, how much of operand
// would fit into the slot. It reports false when the operand is air,
// the insert hook refuses, the effective capacity is zero, or the slot
// holds an incompatible stack. Otherwise leftover is the quantity that
// would not fit; leftover <= 0 means the operand fits completely.
func (s *Storage) SimulateFit(slot int, operand domain.Item) (bool, int, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, 0, err
	}
	operand = sanitize(operand)
	if operand.IsAir() {
		return false, 0, nil
	}
	if !s.policy.CanInsert(slot, operand) {
		return false, 0, nil
	}
	capacity := s.maxStackFor(slot, operand)
	if capacity == 0 {
		return false, 0, nil
	}

	existing := s.items[slot]
	if existing.IsAir() {
		return true, operand.Quantity - capacity, nil
	}
	if !s.stackable(existing, operand) {
		return false, 0, nil
	}
	return true, existing.Quantity + operand.Quantity - capacity, nil
}

// Insert places as much of operand into the slot as policy and capacity
// allow. It returns whether any quantity moved and the unconsumed
// remainder, which replaces the caller's operand (air when fully
// consumed). A perfect fit into an air slot places the original handle
// rather than deriving a duplicate.
func (s *Storage) Insert(user any, slot int, operand domain.Item) (bool, domain.Item, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, operand, err
	}
	operand = sanitize(operand)
	if operand.IsAir() {
		return false, operand, nil
	}
	if !s.policy.CanInteract(slot, domain.OpInput, user) {
		return false, operand, nil
	}

	ok, leftover, err := s.SimulateFit(slot, operand)
	if err != nil || !ok {
		return false, operand, err
	}

	toInsert := operand.Quantity
	if leftover > 0 {
		toInsert = operand.Quantity - leftover
	}
	if toInsert <= 0 {
		// Compatible but already full.
		return false, operand, nil
	}

	s.events.beforeInsert(slot, operand.Split(toInsert))

	if s.items[slot].IsAir() {
		if toInsert == operand.Quantity {
			s.items[slot] = operand
		} else {
			s.items[slot] = operand.Split(toInsert)
		}
	} else {
		s.items[slot].Quantity += toInsert
	}

	return true, operand.Split(operand.Quantity - toInsert), nil
}

// InsertRange distributes operand across [start, start+length). The
// first pass tops up already-compatible, non-full slots in ascending
// order; the second fills remaining air slots in ascending order. The
// merge-first order is a deliberate tie-break that minimizes slot
// fragmentation. It returns whether any sub-insert succeeded and the
// unconsumed remainder.
func (s *Storage) InsertRange(user any, start, length int, operand domain.Item) (bool, domain.Item, error) {
	if err := s.checkRange(start, length); err != nil {
		return false, operand, err
	}
	operand = sanitize(operand)
	if operand.IsAir() {
		return false, operand, nil
	}

	accepted := false
	for _, wantAir := range []bool{false, true} {
		for slot := start; slot < start+length && !operand.IsAir(); slot++ {
			existing := s.items[slot]
			if existing.IsAir() != wantAir {
				continue
			}
			if !wantAir && !s.stackable(existing, operand) {
				continue
			}
			ok, remainder, err := s.Insert(user, slot, operand)
			if err != nil {
				return accepted, operand, err
			}
			if ok {
				accepted = true
				operand = remainder
			}
		}
	}
	return accepted, operand, nil
}

// Remove extracts up to amount units from the slot. Pass RemoveAll for
// an unlimited request. The extracted quantity is capped by the stack
// present and by the item's own MaxStack, even when more is logically
// present in the slot. Extracting the full stack turns the slot to air
// and returns the original handle.
func (s *Storage) Remove(user any, slot, amount int) (bool, domain.Item, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, domain.Air(), err
	}
	if amount == 0 {
		return false, domain.Air(), nil
	}
	if !s.policy.CanInteract(slot, domain.OpOutput, user) {
		return false, domain.Air(), nil
	}
	if !s.policy.CanRemove(slot) {
		return false, domain.Air(), nil
	}

	existing := s.items[slot]
	if existing.IsAir() {
		return false, domain.Air(), nil
	}

	take := existing.Quantity
	if existing.MaxStack >= 0 && existing.MaxStack < take {
		take = existing.MaxStack
	}
	if amount > 0 && amount < take {
		take = amount
	}
	if take <= 0 {
		return false, domain.Air(), nil
	}

	s.events.beforeRemove(slot, existing.Split(take))

	if take == existing.Quantity {
		s.items[slot] = domain.Air()
		return true, existing, nil
	}
	s.items[slot].Quantity -= take
	return true, existing.Split(take), nil
}

// Swap atomically exchanges the slot's content with candidate: no
// merging, a raw exchange. On success it returns the displaced item; on
// rejection neither side is mutated and the candidate comes back
// untouched. The candidate may be air, which drains the slot.
func (s *Storage) Swap(user any, slot int, candidate domain.Item) (bool, domain.Item, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, candidate, err
	}
	if !s.policy.CanInteract(slot, domain.OpBoth, user) {
		return false, candidate, nil
	}
	candidate = sanitize(candidate)
	if !candidate.IsAir() {
		if !s.policy.CanInsert(slot, candidate) {
			return false, candidate, nil
		}
		if candidate.Quantity > s.maxStackFor(slot, candidate) {
			return false, candidate, nil
		}
	}
	if !s.policy.CanRemove(slot) {
		return false, candidate, nil
	}

	previous := s.items[slot]
	s.events.beforeSwap(slot, previous, candidate)
	s.items[slot] = candidate
	return true, previous, nil
}

// ModifyStackSize adjusts a non-air stack's quantity by delta, the
// primitive for consuming units one at a time without churning through
// full insert/remove. Positive deltas are gated by input access and the
// slot's effective capacity; negative deltas by output access and the
// zero floor. A resulting quantity of exactly zero turns the slot to
// air.
func (s *Storage) ModifyStackSize(user any, slot, delta int) (bool, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, err
	}
	if delta == 0 {
		return false, nil
	}

	existing := s.items[slot]
	if existing.IsAir() {
		return false, nil
	}

	if delta > 0 {
		if !s.policy.CanInteract(slot, domain.OpInput, user) {
			return false, nil
		}
		if existing.Quantity+delta > s.maxStackFor(slot, existing) {
			return false, nil
		}
	} else {
		if !s.policy.CanInteract(slot, domain.OpOutput, user) {
			return false, nil
		}
		if existing.Quantity+delta < 0 {
			return false, nil
		}
	}

	s.events.beforeModify(slot, delta)

	s.items[slot].Quantity += delta
	if s.items[slot].Quantity == 0 {
		s.items[slot] = domain.Air()
	}
	return true, nil
}

// maxStackFor is the effective capacity of the slot for this item kind,
// with negative (unbounded) clamped to the representable maximum.
func (s *Storage) maxStackFor(slot int, it domain.Item) int {
	capacity := s.policy.SlotCapacity(slot, it)
	if capacity < 0 {
		return domain.MaxRepresentableStack
	}
	return capacity
}

func (s *Storage) checkSlot(slot int) error {
	if slot < 0 || slot >= len(s.items) {
		return fmt.Errorf("%w: %d (size %d)", domain.ErrSlotOutOfRange, slot, len(s.items))
	}
	return nil
}

// checkRange validates [start, start+length) without computing the sum,
// which can wrap for adversarial lengths.
func (s *Storage) checkRange(start, length int) error {
	if length < 0 || start < 0 || start > len(s.items) || length > len(s.items)-start {
		return fmt.Errorf("%w: start %d, length %d (size %d)", domain.ErrSlotOutOfRange, start, length, len(s.items))
	}
	return nil
}

// sanitize maps invalid caller-supplied items to air so malformed input
// stays inert instead of corrupting slot state.
func sanitize(it domain.Item) domain.Item {
	if it.Quantity <= 0 {
		return domain.Air()
	}
	return it
}
