// Package config defines the declarative configuration consumed by the keel
// lifecycle orchestrator and its validation contract: the registry block is
// checked first as a distinct failure, then a fixed required-field schema is
// walked to produce dotted missing-field paths, then value-level validation
// runs over populated fields.
package config
