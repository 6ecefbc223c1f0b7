package domain

import "math"

// MaxRepresentableStack is the largest quantity a single stack can hold.
// Unbounded slot capacities are clamped to this value, and it matches the
// int32 quantity field of the binary persistence format.
const MaxRepresentableStack = math.MaxInt32

// Item is a single stack of homogeneous units. The storage engine reads
// only TypeID, Quantity, MaxStack and Quality; everything else about an
// item (display, pricing, handlers) lives in the catalog.
type Item struct {
	TypeID   int          `json:"type_id"`
	Quantity int          `json:"quantity"`
	MaxStack int          `json:"max_stack"`
	Quality  QualityLevel `json:"quality,omitempty"`
}

// QualityLevel is the distinguishing metadata carried on a stack.
// Two stacks of the same type but different quality never merge.
type QualityLevel string

const (
	QualityCommon    QualityLevel = "COMMON"
	QualityUncommon  QualityLevel = "UNCOMMON"
	QualityRare      QualityLevel = "RARE"
	QualityEpic      QualityLevel = "EPIC"
	QualityLegendary QualityLevel = "LEGENDARY"
)

// Air returns the canonical "no item present" value.
func Air() Item {
	return Item{}
}

// IsAir reports whether the item represents an empty stack. A negative
// quantity is an invalid caller-supplied state and is treated as air
// rather than rejected, so loosely validated callers stay inert.
func (i Item) IsAir() bool {
	return i.Quantity <= 0
}

// Split derives an independent stack of quantity n from this one. The
// receiver is unchanged; a non-positive n yields air.
func (i Item) Split(n int) Item {
	if n <= 0 {
		return Air()
	}
	out := i
	out.Quantity = n
	return out
}

// SameKind is the default stack-compatibility predicate: equal type and
// equal quality, both sides non-air. Air never stacks with anything.
func SameKind(a, b Item) bool {
	if a.IsAir() || b.IsAir() {
		return false
	}
	return a.TypeID == b.TypeID && a.Quality == b.Quality
}
