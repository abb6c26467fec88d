package location

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ArrayFormat selects how slices are keyed when data is flattened into
// query strings or form fields.
type ArrayFormat string

const (
	// Indices keys elements as tags[0]=a&tags[1]=b.
	Indices ArrayFormat = "indices"

	// Brackets keys elements as tags[]=a&tags[]=b.
	Brackets ArrayFormat = "brackets"
)

// Valid reports whether f is a known array format.
func (f ArrayFormat) Valid() bool {
	return f == Indices || f == Brackets
}

// Pair is one flattened key/value.
type Pair struct {
	Key   string
	Value any
}

// Flatten turns nested maps and slices into ordered key/value pairs using
// bracket notation. Map keys are visited in sorted order. Leaf values are
// left untouched so callers can detect files; nil leaves are kept with a
// nil value.
func Flatten(data any, format ArrayFormat) []Pair {
	var pairs []Pair
	flatten(&pairs, "", data, format)
	return pairs
}

func flatten(pairs *[]Pair, prefix string, v any, format ArrayFormat) {
	switch val := v.(type) {
	case nil:
		if prefix != "" {
			*pairs = append(*pairs, Pair{Key: prefix})
		}
		return
	case File, *File, *os.File:
		if prefix != "" {
			*pairs = append(*pairs, Pair{Key: prefix, Value: val})
		}
		return
	case url.Values:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, s := range val[k] {
				*pairs = append(*pairs, Pair{Key: joinKey(prefix, k), Value: s})
			}
		}
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprint(k.Interface())
			keys = append(keys, ks)
			byKey[ks] = rv.MapIndex(k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(pairs, joinKey(prefix, k), byKey[k].Interface(), format)
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			*pairs = append(*pairs, Pair{Key: prefix, Value: string(rv.Bytes())})
			return
		}
		for i := 0; i < rv.Len(); i++ {
			key := prefix + "[]"
			if format != Brackets {
				key = prefix + "[" + strconv.Itoa(i) + "]"
			}
			flatten(pairs, key, rv.Index(i).Interface(), format)
		}
	case reflect.Pointer:
		if rv.IsNil() {
			flatten(pairs, prefix, nil, format)
			return
		}
		flatten(pairs, prefix, rv.Elem().Interface(), format)
	default:
		if prefix != "" {
			*pairs = append(*pairs, Pair{Key: prefix, Value: v})
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

// Stringify renders a scalar leaf the way it appears on the wire.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// EncodeQuery encodes pairs as a query string, preserving pair order.
// Values are percent-encoded; brackets in keys are kept literal.
func EncodeQuery(pairs []Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		if isFile(p.Value) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encodeKey(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(Stringify(p.Value)))
	}
	return b.String()
}

func encodeKey(key string) string {
	escaped := url.QueryEscape(key)
	escaped = strings.ReplaceAll(escaped, "%5B", "[")
	return strings.ReplaceAll(escaped, "%5D", "]")
}

// ParseQuery splits a raw query string into ordered pairs.
func ParseQuery(raw string) []Pair {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}
	var pairs []Pair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			key = k
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return pairs
}

// MergeQuery merges data into the location's existing query string.
// Existing parameters keep their order; parameters whose root key appears
// in data are replaced by the data's values, which are appended after them.
func MergeQuery(loc Location, data any, format ArrayFormat) Location {
	added := Flatten(data, format)
	if len(added) == 0 {
		return loc
	}

	roots := make(map[string]bool, len(added))
	for _, p := range added {
		roots[rootKey(p.Key)] = true
	}

	var merged []Pair
	for _, p := range ParseQuery(loc.Search) {
		if !roots[rootKey(p.Key)] {
			merged = append(merged, p)
		}
	}
	merged = append(merged, added...)

	u := loc.URL()
	u.RawQuery = EncodeQuery(merged)
	return FromURL(u)
}

func rootKey(key string) string {
	if i := strings.IndexByte(key, '['); i > 0 {
		return key[:i]
	}
	return key
}

func isFile(v any) bool {
	switch v.(type) {
	case File, *File, *os.File:
		return true
	}
	return false
}
