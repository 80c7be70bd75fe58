package model

// Version constants for persisted formats and the binary.
const (
	// CacheFormatVersion is the step cache document version.
	CacheFormatVersion = "1"

	// EngineVersion is the stepwise engine version.
	EngineVersion = "0.1.0"
)
