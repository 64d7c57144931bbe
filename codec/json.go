package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Metadata payloads here are maps and small structs, well within what
// encoding/json handles portably. Implement Codec to plug in a custom
// encoding where a store supports it.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly written metadata.
//
// Existing persisted files are self-describing (they store the codec name in
// their header) and are opened by selecting the appropriate codec by name,
// so changing the default never breaks old files.
var Default Codec = JSON{}
