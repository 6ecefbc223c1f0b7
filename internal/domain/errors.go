package domain

import "errors"

// Error message string constants - single source of truth for error messages.
// Use these in assert.Contains() checks when testing error messages.
const (
	// Storage errors
	ErrMsgSlotOutOfRange  = "slot index out of range"
	ErrMsgStorageRefused  = "operation refused by storage"
	ErrMsgNilCodec        = "item codec is nil"
	ErrMsgMalformedRecord = "malformed item record"

	// Container errors
	ErrMsgContainerNotFound = "container not found"

	// Catalog errors
	ErrMsgItemNotFound      = "item not found"
	ErrMsgDuplicateItem     = "duplicate item definition"
	ErrMsgInvalidItemConfig = "invalid item configuration"
	ErrMsgInvalidSlotCount  = "invalid slot count"
	ErrMsgInvalidInput      = "invalid input"
)

// Common domain errors.
// These errors should be used consistently across all layers.
// Wrap with fmt.Errorf("%w: %s", domain.ErrXxx, details) for context.
var (
	// ErrSlotOutOfRange is the only hard error the engine raises from a
	// slot-addressed operation: it indicates a caller bug, never a
	// game-state outcome, and the call mutates nothing.
	ErrSlotOutOfRange = errors.New(ErrMsgSlotOutOfRange)

	// ErrStorageRefused is surfaced by the service layer when the
	// engine reports a policy/capacity refusal. Inside the engine a
	// refusal is a boolean outcome, not an error.
	ErrStorageRefused = errors.New(ErrMsgStorageRefused)

	ErrNilCodec        = errors.New(ErrMsgNilCodec)
	ErrMalformedRecord = errors.New(ErrMsgMalformedRecord)

	ErrContainerNotFound = errors.New(ErrMsgContainerNotFound)

	ErrItemNotFound      = errors.New(ErrMsgItemNotFound)
	ErrDuplicateItem     = errors.New(ErrMsgDuplicateItem)
	ErrInvalidItemConfig = errors.New(ErrMsgInvalidItemConfig)
	ErrInvalidSlotCount  = errors.New(ErrMsgInvalidSlotCount)
	ErrInvalidInput      = errors.New(ErrMsgInvalidInput)
)
