package program

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Clone returns a deep copy of v. Mappings, sequences and byte slices are
// copied recursively; *Output values are immutable and shared.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any(nil)
		}

		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = Clone(e)
		}

		return c

	case []any:
		if t == nil {
			return []any(nil)
		}

		c := make([]any, len(t))
		for i, e := range t {
			c[i] = Clone(e)
		}

		return c

	case []string:
		return slices.Clone(t)

	case []byte:
		return slices.Clone(t)

	case map[string]string:
		return maps.Clone(t)

	default:
		return v
	}
}

// Normalize converts decoded values into the canonical value domain:
// integers become int, floats become float64, mappings become
// map[string]any, and sequences become []any. Other values are returned
// unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case int8:
		return int(t)
	case int16:
		return int(t)
	case int32:
		return int(t)
	case int64:
		return int(t)
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int(t)
	case uint16:
		return int(t)
	case uint32:
		return int(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t)

	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}

		if f, err := t.Float64(); err == nil {
			return f
		}

		return t.String()

	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = Normalize(e)
		}

		return c

	case map[any]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[fmt.Sprint(k)] = Normalize(e)
		}

		return c

	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = Normalize(e)
		}

		return c

	case []string:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = e
		}

		return c

	default:
		return v
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt {
		return float64(u)
	}

	return int(u)
}

// DecodeJSON decodes b preserving integers as int.
func DecodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return Normalize(v), nil
}

// Fingerprint returns a stable key for an execution request. It does not
// depend on the iteration order of inputs or config, nor on the order of
// outputs. Inputs whose names begin with an underscore are control flags
// and do not contribute.
func Fingerprint(
	inputs map[string]any,
	config map[string]any,
	outputs []string,
) string {
	in := make(map[string]any, len(inputs))
	for k, v := range inputs {
		if len(k) > 0 && k[0] == '_' {
			continue
		}

		in[k] = v
	}

	out := slices.Sorted(slices.Values(outputs))

	// encoding/json emits map keys in sorted order.
	b, err := json.Marshal(struct {
		Inputs  map[string]any `json:"inputs"`
		Config  map[string]any `json:"config"`
		Outputs []string       `json:"outputs"`
	}{in, config, out})
	if err != nil {
		b = fmt.Appendf(nil, "%v|%v|%v", in, config, out)
	}

	return strconv.FormatUint(xxh3.Hash(b), 36)
}
