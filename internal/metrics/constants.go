package metrics

// Metric names
const (
	MetricNameEngineOperations  = "stockpile_engine_operations_total"
	MetricNameServiceOperations = "stockpile_service_operations_total"
	MetricNameServiceDuration   = "stockpile_service_operation_duration_seconds"
	MetricNameQuantityMoved     = "stockpile_quantity_moved_total"
	MetricNameCacheHits         = "stockpile_container_cache_hits_total"
	MetricNameCacheMisses       = "stockpile_container_cache_misses_total"
	MetricNameEventsPublished   = "stockpile_events_published_total"
)

// Help texts
const (
	HelpTextEngineOperations  = "Engine slot operations by operation and outcome"
	HelpTextServiceOperations = "Container service operations by operation and outcome"
	HelpTextServiceDuration   = "Container service operation latency"
	HelpTextQuantityMoved     = "Units moved through the engine by direction"
	HelpTextCacheHits         = "Open-container cache hits"
	HelpTextCacheMisses       = "Open-container cache misses"
	HelpTextEventsPublished   = "Events published on the storage bus by type"
)

// Label names
const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelDirection = "direction"
	LabelType      = "type"
)

// Outcome label values
const (
	OutcomeAccepted = "accepted"
	OutcomeRefused  = "refused"
	OutcomeError    = "error"
)

// Direction label values
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// ServiceLatencyBuckets covers sub-millisecond engine calls through
// database round trips.
var ServiceLatencyBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}
