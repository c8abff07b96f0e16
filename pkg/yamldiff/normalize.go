package yamldiff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Normalize converts a generic document, as produced by a YAML or JSON
// decoder, into a Map.
//
// Scalars become their canonical text: "null", "true"/"false", the
// number as written (json.Number) or formatted, and strings as they
// are. Sequences become Lists, mappings become Maps. A mapping key that
// is not a string is normalized to the empty string. A document whose
// root is not a mapping normalizes to an empty Map. Use Inspect to find
// out whether either of these happened.
func Normalize(doc interface{}) Map {
	if m, ok := normalize(doc).(Map); ok {
		return m
	}
	return Map{}
}

func normalize(v interface{}) Value {
	switch v := v.(type) {
	case nil:
		return Scalar("null")
	case bool:
		return Scalar(strconv.FormatBool(v))
	case string:
		return Scalar(v)
	case json.Number:
		return Scalar(v.String())
	case int:
		return Scalar(strconv.FormatInt(int64(v), 10))
	case int8:
		return Scalar(strconv.FormatInt(int64(v), 10))
	case int16:
		return Scalar(strconv.FormatInt(int64(v), 10))
	case int32:
		return Scalar(strconv.FormatInt(int64(v), 10))
	case int64:
		return Scalar(strconv.FormatInt(v, 10))
	case uint:
		return Scalar(strconv.FormatUint(uint64(v), 10))
	case uint8:
		return Scalar(strconv.FormatUint(uint64(v), 10))
	case uint16:
		return Scalar(strconv.FormatUint(uint64(v), 10))
	case uint32:
		return Scalar(strconv.FormatUint(uint64(v), 10))
	case uint64:
		return Scalar(strconv.FormatUint(v, 10))
	case float32:
		return Scalar(formatFloat(float64(v), 32))
	case float64:
		return Scalar(formatFloat(v, 64))
	case []interface{}:
		l := make(List, len(v))
		for i := range v {
			l[i] = normalize(v[i])
		}
		return l
	case map[string]interface{}:
		m := make(Map, len(v))
		for k, e := range v {
			m[k] = normalize(e)
		}
		return m
	case map[interface{}]interface{}:
		return normalizeAnyKeys(v)
	default:
		return Scalar(fmt.Sprint(v))
	}
}

// normalizeAnyKeys handles mappings whose keys may be of any type. All
// non-string keys collapse onto the empty key; a genuine "" key wins
// over them, and among themselves the key sorting last by its printed
// form wins, so the outcome does not depend on map iteration order.
func normalizeAnyKeys(v map[interface{}]interface{}) Map {
	m := make(Map, len(v))
	var degraded []interface{}
	for k, e := range v {
		if s, ok := k.(string); ok {
			m[s] = normalize(e)
			continue
		}
		degraded = append(degraded, k)
	}
	if _, taken := m[""]; !taken && len(degraded) > 0 {
		sort.Slice(degraded, func(i, j int) bool {
			return fmt.Sprint(degraded[i]) < fmt.Sprint(degraded[j])
		})
		m[""] = normalize(v[degraded[len(degraded)-1]])
	}
	return m
}

// formatFloat renders f in its shortest exact form, keeping a decimal
// point on integral values so that 1.0 does not read as the integer 1.
func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

// Reasons given in a Warning.
const (
	ReasonRootNotMapping = "document root is not a mapping, so it is compared as an empty map"
	ReasonKeyNotString   = "mapping key is not a string, so it is compared as the empty key"
)

// Warning records a place where Normalize silently dropped or altered
// content.
type Warning struct {
	// Path is where the content ended up; the empty string stands for
	// the document root.
	Path   string
	Reason string
	// Key is the printed form of the offending key, if any.
	Key string
}

func (w Warning) String() string {
	path := w.Path
	if path == "" {
		path = "(root)"
	}
	if w.Key != "" {
		return fmt.Sprintf("%s: %s (key %q)", path, w.Reason, w.Key)
	}
	return fmt.Sprintf("%s: %s", path, w.Reason)
}

// Inspect reports the content of doc that Normalize would degrade: a
// root that is not a mapping, and mapping keys that are not strings.
// Elements inside a list are reported against the path of the list.
func Inspect(doc interface{}) []Warning {
	switch doc.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
	default:
		return []Warning{{Path: "", Reason: ReasonRootNotMapping}}
	}
	var warnings []Warning
	inspect(doc, "", &warnings)
	return warnings
}

func inspect(v interface{}, prefix string, warnings *[]Warning) {
	switch v := v.(type) {
	case []interface{}:
		for _, e := range v {
			inspect(e, prefix, warnings)
		}
	case map[string]interface{}:
		for k, e := range v {
			inspect(e, JoinPath(prefix, k), warnings)
		}
	case map[interface{}]interface{}:
		var keys []interface{}
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
		})
		for _, k := range keys {
			s, ok := k.(string)
			if !ok {
				*warnings = append(*warnings, Warning{
					Path:   JoinPath(prefix, ""),
					Reason: ReasonKeyNotString,
					Key:    fmt.Sprint(k),
				})
			}
			inspect(v[k], JoinPath(prefix, s), warnings)
		}
	}
}
