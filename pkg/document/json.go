package document

import (
	"encoding/json"
	"fmt"
)

// ToJSON encodes a parsed document as JSON. Mapping keys that are not
// strings are printed, and numbers JSON cannot represent (e.g., 0x1F
// or .inf) become strings.
func ToJSON(doc interface{}) ([]byte, error) {
	return json.Marshal(jsonable(doc))
}

func jsonable(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[keyString(k)] = jsonable(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = jsonable(e)
		}
		return s
	case json.Number:
		if json.Valid([]byte(v)) {
			return v
		}
		return string(v)
	}
	return v
}

func keyString(k interface{}) string {
	switch k := k.(type) {
	case string:
		return k
	case nil:
		return "null"
	}
	return fmt.Sprint(k)
}
