package config

// Cache defaults for open-container caching in the service layer.
const (
	DefaultCacheSize       = 256
	DefaultCacheTTLSeconds = 300
)
