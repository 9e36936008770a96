package campaign

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes a campaign file on top of the defaults for now, so keys
// missing from the file keep their default values.
func LoadYAML(r io.Reader, now time.Time) (Record, error) {
	rec := New(now)

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil && err != io.EOF {
		return Record{}, fmt.Errorf("decode campaign yaml: %w", err)
	}

	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
