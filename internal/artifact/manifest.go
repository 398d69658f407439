package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GriffinCanCode/ai4/internal/shared/utils"
)

// Manifest keys written by the store and the trainer.
const (
	KeyName      = "name"
	KeyVersion   = "version"
	KeyCreated   = "created"
	KeyInputDim  = "input_dim"
	KeyOutputDim = "output_dim"
	KeyHidden    = "hidden"
	KeyTrainTask = "train_task"
	KeyHash      = "hash"
)

// Manifest is the JSON metadata document of an artifact. It is descriptive
// only: Load never consults it for tensor shapes. Keys keep the order in which
// they were first set.
type Manifest struct {
	fields utils.OrderedMap[any]
}

// NewManifest returns the base manifest every artifact carries.
func NewManifest(name string, created time.Time) *Manifest {
	m := &Manifest{}
	m.Set(KeyName, name)
	m.Set(KeyVersion, Version)
	m.Set(KeyCreated, created.Unix())
	return m
}

// Set stores a field, replacing any previous value in place.
func (m *Manifest) Set(key string, v any) {
	m.fields.Set(key, v)
}

// Get returns a raw field value.
func (m *Manifest) Get(key string) (any, bool) {
	return m.fields.Get(key)
}

// Keys returns the field names in document order.
func (m *Manifest) Keys() []string {
	return m.fields.Keys()
}

// Field is one extra manifest entry.
type Field struct {
	Key   string
	Value any
}

// Fields are extra manifest entries in the order they should be written.
type Fields []Field

// Merge overlays extra onto the manifest; extra wins on key collision.
// Existing keys keep their position and new keys are appended in the order
// given.
func (m *Manifest) Merge(extra Fields) {
	for _, f := range extra {
		m.Set(f.Key, f.Value)
	}
}

// StringField returns a string field, or "" when absent or not a string.
func (m *Manifest) StringField(key string) string {
	v, _ := m.fields.Get(key)
	s, _ := v.(string)
	return s
}

// Int returns an integer field. JSON numbers decoded from disk, Go integers
// and integral floats are all accepted.
func (m *Manifest) Int(key string) (int64, bool) {
	v, ok := m.fields.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}

// Name returns the artifact name.
func (m *Manifest) Name() string { return m.StringField(KeyName) }

// Hash returns the recorded content hash, if the manifest was stamped.
func (m *Manifest) Hash() string { return m.StringField(KeyHash) }

// MarshalJSON implements json.Marshaler.
func (m Manifest) MarshalJSON() ([]byte, error) {
	return m.fields.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	return m.fields.UnmarshalJSON(data)
}

// ReadManifest decodes dir/manifest.json.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrArtifactNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	return &m, nil
}

// WriteManifest writes the manifest as 2-space indented JSON, replacing the
// file in place.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
