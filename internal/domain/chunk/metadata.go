package chunk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Metadata holds primitive values only: string, int64, float64, bool or nil.
type Metadata map[string]any

// Sanitize converts arbitrary values into index-safe primitives.
// Non-primitive values are JSON-encoded into strings.
func Sanitize(in map[string]any) Metadata {
	if in == nil {
		return Metadata{}
	}
	out := make(Metadata, len(in))
	for k, v := range in {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimRight(buf.String(), "\n")
	}
}

// UnmarshalMetadata decodes JSON metadata, keeping integers as int64.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return Sanitize(raw), nil
}

// String returns the value under key rendered as a string ("" when absent).
func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the numeric value under key. Numeric strings are accepted.
func (m Metadata) Number(key string) (float64, bool) {
	switch v := m[key].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// List returns the value under key as a list. JSON-encoded lists and
// bracketed "[a, b]" strings are both understood; scalars yield one element.
func (m Metadata) List(key string) []string {
	s := strings.TrimSpace(m.String(key))
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			out := make([]string, 0, len(items))
			for _, it := range items {
				out = append(out, strings.TrimSpace(fmt.Sprint(it)))
			}
			return out
		}
		return SplitList(s)
	}
	return []string{s}
}

// SplitList parses the bracketed list notation "[a, b, c]".
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (m Metadata) canonicalJSON() []byte {
	data, err := MarshalMetadata(m)
	if err != nil {
		return []byte(fmt.Sprint(map[string]any(m)))
	}
	return data
}
