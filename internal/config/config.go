// Package config decodes the generic map[string]any configuration payloads
// carried by AddProcessor and UpdateConfig operations into a processor
// type's concrete Config struct, and computes the checksum the graph
// stores on each node for change detection.
package config

import (
	"encoding/json"
	"hash/fnv"

	"github.com/go-viper/mapstructure/v2"
)

// Decode populates dst (a pointer to a processor's concrete Config struct)
// from raw, a generic map[string]any payload such as the body of a
// POST /api/processors request. This is the same decode library
// tvarr's own Viper-backed configuration loading pulls in, reused here
// for per-processor config instead of top-level application config.
func Decode(raw map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Checksum computes an FNV-64a hash over the canonical JSON encoding of
// cfg. No library in the example pack computes a checksum over an
// arbitrary config value more directly than hashing its JSON form, so this
// uses hash/fnv directly rather than reaching for a third-party hashing
// package meant for a different shape of input (file contents, byte
// streams).
func Checksum(cfg any) (uint64, error) {
	canonical, err := json.Marshal(cfg)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	if _, err := h.Write(canonical); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
