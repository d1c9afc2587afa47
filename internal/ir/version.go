package ir

// Version constants for the store schema and engine.
const (
	// StoreVersion is the persisted store schema version.
	StoreVersion = 1

	// EngineVersion is the kiln engine version.
	EngineVersion = "0.1.0"
)
