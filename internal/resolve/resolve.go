// Package resolve walks dotted attribute paths against heterogeneous record
// shapes. Absence is a normal outcome, never an error: a record without a
// primary IP must not break the search for its other fields.
package resolve

import (
	"net/netip"
	"reflect"
	"strconv"
	"strings"
)

// Value resolves a dot-separated attribute path against v.
// It returns the leaf coerced to a string and true, or ("", false) the moment
// any segment is missing, nil, or not traversable (e.g. the path continues
// past a scalar). It never panics on malformed paths or unexpected shapes.
func Value(v any, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := v
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return "", false
		}
		next, ok := step(cur, segment)
		if !ok {
			return "", false
		}
		cur = next
	}
	return coerce(cur)
}

// step performs a single segment lookup on cur.
func step(cur any, segment string) (any, bool) {
	if cur == nil {
		return nil, false
	}

	// Fast path: the common case after JSON decoding.
	if m, ok := cur.(map[string]any); ok {
		v, ok := m[segment]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}

	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(segment))
		if !v.IsValid() || v.Interface() == nil {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		f := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, segment)
		})
		if !f.IsValid() || !f.CanInterface() || f.Interface() == nil {
			return nil, false
		}
		return f.Interface(), true
	default:
		// Path continues past a scalar.
		return nil, false
	}
}

// coerce converts a leaf value to its natural string representation.
// Composite leaves (objects, lists) do not resolve; an address with a prefix
// length ("10.1.2.3/24") resolves to the bare address.
func coerce(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return stripPrefixLength(t), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		// JSON numbers decode as float64; format without exponent noise.
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return coerce(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	default:
		return "", false
	}
}

// stripPrefixLength reduces an IP-with-prefix value to the bare address.
// Inventory systems commonly store primary IPs as "192.0.2.10/24"; the
// external services index the address without the mask.
func stripPrefixLength(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return s
	}
	return p.Addr().String()
}
