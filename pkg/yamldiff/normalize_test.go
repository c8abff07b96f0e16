package yamldiff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Scalars(t *testing.T) {
	for _, c := range []struct {
		in   interface{}
		want Scalar
	}{
		{nil, "null"},
		{true, "true"},
		{false, "false"},
		{"hello", "hello"},
		{"", ""},
		{json.Number("1.10"), "1.10"},
		{json.Number("0x1F"), "0x1F"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint64(18446744073709551615), "18446744073709551615"},
		{1.5, "1.5"},
		{2.0, "2.0"},
		{float32(0.25), "0.25"},
		{1e21, "1e+21"},
	} {
		got := Normalize(map[string]interface{}{"k": c.in})
		assert.Equal(t, Map{"k": c.want}, got, "normalizing %#v", c.in)
	}
}

func TestNormalize_Nested(t *testing.T) {
	doc := map[interface{}]interface{}{
		"name": "svc",
		"ports": []interface{}{
			80,
			map[interface{}]interface{}{"port": 443, "tls": true},
		},
		"empty": map[interface{}]interface{}{},
	}

	want := Map{
		"name": Scalar("svc"),
		"ports": List{
			Scalar("80"),
			Map{"port": Scalar("443"), "tls": Scalar("true")},
		},
		"empty": Map{},
	}
	assert.Equal(t, want, Normalize(doc))
}

func TestNormalize_NonMappingRoot(t *testing.T) {
	for _, doc := range []interface{}{
		nil,
		"just a string",
		[]interface{}{"a", "b"},
		3,
	} {
		assert.Equal(t, Map{}, Normalize(doc))
		assert.Equal(t, []Warning{{Path: "", Reason: ReasonRootNotMapping}}, Inspect(doc))
	}
}

func TestNormalize_NonStringKeys(t *testing.T) {
	doc := map[interface{}]interface{}{
		1:     "one",
		true:  "yes",
		"str": "kept",
	}

	got := Normalize(doc)
	// "true" sorts after "1", so its value wins the empty key
	assert.Equal(t, Map{"": Scalar("yes"), "str": Scalar("kept")}, got)

	warnings := Inspect(doc)
	assert.Equal(t, []Warning{
		{Path: "/", Reason: ReasonKeyNotString, Key: "1"},
		{Path: "/", Reason: ReasonKeyNotString, Key: "true"},
	}, warnings)
}

func TestNormalize_EmptyStringKeyWins(t *testing.T) {
	doc := map[interface{}]interface{}{
		"": "genuine",
		42: "degraded",
	}
	assert.Equal(t, Map{"": Scalar("genuine")}, Normalize(doc))
}

func TestNormalize_Deterministic(t *testing.T) {
	doc := map[interface{}]interface{}{
		1: "a", 2: "b", 3: "c", 4: "d", 5: "e",
		"nested": map[interface{}]interface{}{7: []interface{}{1.0, nil}},
	}
	want := Normalize(doc)
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, Normalize(doc))
	}
}

func TestInspect_Nested(t *testing.T) {
	doc := map[string]interface{}{
		"top": map[interface{}]interface{}{
			"list": []interface{}{
				map[interface{}]interface{}{3: "x"},
			},
		},
	}
	assert.Equal(t, []Warning{
		{Path: "/top/list/", Reason: ReasonKeyNotString, Key: "3"},
	}, Inspect(doc))
	assert.Empty(t, Inspect(map[string]interface{}{"a": 1}))
}

func TestWarning_String(t *testing.T) {
	assert.Equal(t, "(root): "+ReasonRootNotMapping, Warning{Reason: ReasonRootNotMapping}.String())
	assert.Equal(t, `/a/: `+ReasonKeyNotString+` (key "1")`,
		Warning{Path: "/a/", Reason: ReasonKeyNotString, Key: "1"}.String())
}
