package storage

import "github.com/osse101/stockpile/internal/domain"

// Events holds optional observer callbacks invoked immediately before a
// mutating operation commits. Rejected operations never fire them. All
// callbacks are optional; a zero Events observes nothing.
type Events struct {
	// BeforeInsert fires with the quantity about to be placed or merged.
	BeforeInsert func(slot int, incoming domain.Item)

	// BeforeRemove fires with the quantity about to be extracted.
	BeforeRemove func(slot int, taken domain.Item)

	// BeforeSwap fires with both sides of the exchange.
	BeforeSwap func(slot int, outgoing, incoming domain.Item)

	// BeforeModify fires with the delta about to be applied.
	BeforeModify func(slot int, delta int)
}

func (e Events) beforeInsert(slot int, incoming domain.Item) {
	if e.BeforeInsert != nil {
		e.BeforeInsert(slot, incoming)
	}
}

func (e Events) beforeRemove(slot int, taken domain.Item) {
	if e.BeforeRemove != nil {
		e.BeforeRemove(slot, taken)
	}
}

func (e Events) beforeSwap(slot int, outgoing, incoming domain.Item) {
	if e.BeforeSwap != nil {
		e.BeforeSwap(slot, outgoing, incoming)
	}
}

func (e Events) beforeModify(slot, delta int) {
	if e.BeforeModify != nil {
		e.BeforeModify(slot, delta)
	}
}
