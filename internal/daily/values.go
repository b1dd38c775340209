package daily

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Text is a string field that also accepts JSON numbers and booleans.
// Objects, arrays and null decode to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	v, ok := decodeScalar(data)
	if !ok {
		*t = ""
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// Or returns the text, or def when it is empty.
func (t Text) Or(def string) string {
	if t == "" {
		return def
	}
	return string(t)
}

func (t Text) String() string { return string(t) }

// Number is a numeric field that also accepts numeric strings.
// Anything unparseable decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	v, ok := decodeScalar(data)
	if !ok {
		*n = 0
		return nil
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// String renders the shortest decimal that round-trips, so integral values
// print without a fractional part and no rounding is introduced.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Flag is a boolean field that also accepts 0/1 and "true"/"false".
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	v, ok := decodeScalar(data)
	if !ok {
		*f = false
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		*f = false
		return nil
	}
	*f = Flag(b)
	return nil
}

// Tags accepts a JSON array of scalars or a single comma-separated string.
// Empty entries are dropped.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = nil
		return nil
	}

	var out []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if _, nested := item.([]any); nested {
				continue
			}
			if _, nested := item.(map[string]any); nested {
				continue
			}
			if s := cast.ToString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	*t = out
	return nil
}

// decodeScalar unmarshals a JSON value and reports whether it is a
// string, number or bool.
func decodeScalar(data []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64, bool:
		return v, true
	default:
		return nil, false
	}
}
