package item

// Record field names for the structured (tagged-value) item form.
const (
	FieldID       = "id"
	FieldQuantity = "quantity"
	FieldMaxStack = "max_stack"
	FieldQuality  = "quality"
)

// MaxQualityLength bounds the length-prefixed quality string in the
// binary item record.
const MaxQualityLength = 255

// Error message constants for the catalog
const (
	ErrMsgReadConfigFailed  = "failed to read item config: %w"
	ErrMsgParseConfigFailed = "failed to parse item config: %w"
)
