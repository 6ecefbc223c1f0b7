package domain

// Operation describes the directionality of an access-control check.
// It parameterizes the CanInteract policy hook per call and is never
// persisted.
type Operation uint8

const (
	// OpInput marks an operation that puts quantity into a slot.
	OpInput Operation = 1 << iota
	// OpOutput marks an operation that takes quantity out of a slot.
	OpOutput
)

// OpBoth marks operations that both insert and remove, such as a swap.
const OpBoth = OpInput | OpOutput

// Has reports whether all flags in mask are set.
func (o Operation) Has(mask Operation) bool {
	return o&mask == mask
}

func (o Operation) String() string {
	switch o {
	case OpInput:
		return "input"
	case OpOutput:
		return "output"
	case OpBoth:
		return "both"
	default:
		return "none"
	}
}
