// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Configuration structures for the interpreter, grounded on the teacher's
// pkg/metricstore/config.go (nested, JSON-tagged structs with documented
// fields and package-level defaults) and pkg/schema/validate.go
// (jsonschema-validated documents).
package m26interp

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SupportedTriggerDataFormat is the only trigger word layout this package
// understands: a 15-bit timestamp in bits 16..30 and a 16-bit trigger
// number in bits 0..15 (spec §4.3/§6).
const SupportedTriggerDataFormat = 2

// DefaultTimingOffset is the empirical offset between the Mimosa26 40 MHz
// clock and the readout system's 40 MHz clock (spec §4.5).
const DefaultTimingOffset int64 = -112

// Config holds the recognized construction-time options (spec §6).
//
// Fields:
//   - ActivePlanes:      header IDs to interpret; IDs outside this set are
//     dropped silently. Defaults to {1,2,3,4,5,6}.
//   - TriggerDataFormat: must be SupportedTriggerDataFormat; any other
//     value is a construction-time failure.
//   - AddMissingEvents:  synthesize placeholder events for trigger-number
//     gaps instead of flagging TriggerNumberError.
//   - TimingOffset:      40 MHz-tick correction applied by the Event
//     Builder (spec §4.5).
//   - ChunkSize:         informational only; the core does not chunk its
//     own input.
type Config struct {
	ActivePlanes      []uint8 `json:"active_planes"`
	TriggerDataFormat int     `json:"trigger_data_format"`
	AddMissingEvents  bool    `json:"add_missing_events"`
	TimingOffset      int64   `json:"timing_offset"`
	ChunkSize         int     `json:"chunk_size"`
}

// DefaultConfig returns the configuration spec §6 describes as the default:
// all six planes active, trigger format 2, no missing-event synthesis, the
// empirical timing offset.
func DefaultConfig() Config {
	return Config{
		ActivePlanes:      []uint8{1, 2, 3, 4, 5, 6},
		TriggerDataFormat: SupportedTriggerDataFormat,
		AddMissingEvents:  false,
		TimingOffset:      DefaultTimingOffset,
	}
}

// configSchema validates a JSON configuration document before it is decoded
// into Config. Kept inline (CompileString) rather than the teacher's
// embedded multi-file schema set, since this package has exactly one
// configuration shape.
const configSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"active_planes": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0, "maximum": 15}
		},
		"trigger_data_format": {"type": "integer"},
		"add_missing_events": {"type": "boolean"},
		"timing_offset": {"type": "integer"},
		"chunk_size": {"type": "integer", "minimum": 0}
	},
	"additionalProperties": false
}`

var compiledConfigSchema *jsonschema.Schema

func init() {
	s, err := jsonschema.CompileString("config.json", configSchema)
	if err != nil {
		panic(fmt.Sprintf("[M26INTERP]> invalid built-in config schema: %v", err))
	}
	compiledConfigSchema = s
}

// LoadConfig decodes and validates a JSON configuration document (the
// teacher's config.json convention, see pkg/metricstore/config.go), falling
// back to DefaultConfig's values for any field left unset in the document.
func LoadConfig(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("[M26INTERP]> read config: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("[M26INTERP]> decode config: %w", err)
	}
	if err := compiledConfigSchema.Validate(generic); err != nil {
		return Config{}, fmt.Errorf("[M26INTERP]> config schema validation: %w", err)
	}

	cfg := DefaultConfig()
	var overlay struct {
		ActivePlanes      *[]uint8 `json:"active_planes"`
		TriggerDataFormat *int     `json:"trigger_data_format"`
		AddMissingEvents  *bool    `json:"add_missing_events"`
		TimingOffset      *int64   `json:"timing_offset"`
		ChunkSize         *int     `json:"chunk_size"`
	}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return Config{}, fmt.Errorf("[M26INTERP]> decode config: %w", err)
	}
	if overlay.ActivePlanes != nil {
		cfg.ActivePlanes = *overlay.ActivePlanes
	}
	if overlay.TriggerDataFormat != nil {
		cfg.TriggerDataFormat = *overlay.TriggerDataFormat
	}
	if overlay.AddMissingEvents != nil {
		cfg.AddMissingEvents = *overlay.AddMissingEvents
	}
	if overlay.TimingOffset != nil {
		cfg.TimingOffset = *overlay.TimingOffset
	}
	if overlay.ChunkSize != nil {
		cfg.ChunkSize = *overlay.ChunkSize
	}
	return cfg, nil
}

// validate checks the construction-time invariants of spec §7a: unsupported
// trigger format and invalid/duplicate plane IDs fail before any data is
// consumed.
func (c Config) validate() error {
	if c.TriggerDataFormat != SupportedTriggerDataFormat {
		return fmt.Errorf("%w: got %d", ErrUnsupportedTriggerFormat, c.TriggerDataFormat)
	}
	if len(c.ActivePlanes) == 0 {
		return ErrNoActivePlanes
	}
	seen := make(map[uint8]bool, len(c.ActivePlanes))
	for _, id := range c.ActivePlanes {
		if id > 15 {
			return fmt.Errorf("%w: got %d", ErrInvalidPlaneID, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicatePlaneID, id)
		}
		seen[id] = true
	}
	return nil
}
