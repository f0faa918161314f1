package dom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Metadata is a string-keyed mapping that preserves insertion order across
// JSON round trips. Callers add arbitrary keys at runtime (including
// synthesized "*_conflicts" companions), so key order matters when the
// artifact is read by humans: a companion key must land next to the key it
// annotates. Nested objects decode as plain map[string]any.
type Metadata struct {
	keys   []string
	values map[string]any
}

// NewMetadata returns an empty ordered metadata map.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// MetadataFromPairs builds metadata from alternating key/value pairs.
// Intended for literals in construction code and tests.
func MetadataFromPairs(pairs ...any) *Metadata {
	m := NewMetadata()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// Set stores value under key, appending the key if it is new.
func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetAfter stores value under key, positioning a new key immediately after
// anchor when anchor is present. Used to keep "*_conflicts" companions
// adjacent to their canonical key.
func (m *Metadata) SetAfter(anchor, key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; exists {
		m.values[key] = value
		return
	}
	m.values[key] = value
	for i, existing := range m.keys {
		if existing == anchor {
			m.keys = append(m.keys[:i+1], append([]string{key}, m.keys[i+1:]...)...)
			return
		}
	}
	m.keys = append(m.keys, key)
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// String returns the value under key as a string, or "" when absent or not
// a string.
func (m *Metadata) String(key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Delete removes key if present.
func (m *Metadata) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, existing := range m.keys {
		if existing == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a shallow copy preserving key order.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return NewMetadata()
	}
	out := &Metadata{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encode metadata key %q: %w", key, err)
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("encode metadata value for %q: %w", key, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording keys in document order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode metadata: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode metadata key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode metadata: non-string key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode metadata value for %q: %w", key, err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode metadata value for %q: %w", key, err)
		}
		m.Set(key, value)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}

// ValuesEqual reports deep structural equality between two metadata values.
// JSON scalars decode consistently (numbers as float64), so reflect-based
// comparison is sufficient for artifact-sourced values.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// FormatValue renders a metadata value for human-readable conflict listings.
// Strings pass through untouched; everything else renders as compact JSON
// with a fmt fallback.
func FormatValue(value any) string {
	switch v := normalizeValue(value).(type) {
	case string:
		return v
	case nil:
		return "null"
	case float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// normalizeValue widens runtime-native values to their JSON decode shapes so
// values set in code compare equal to the same values read back from disk.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case *Metadata:
		out := make(map[string]any, v.Len())
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			out[key] = normalizeValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return value
	}
}
