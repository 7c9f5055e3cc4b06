package models

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeFields maps document fields onto a record using its firestore tags.
// Weak typing lets integer prices and quantities written by other clients
// decode into the record's numeric fields.
func decodeFields(fields map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "firestore",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
