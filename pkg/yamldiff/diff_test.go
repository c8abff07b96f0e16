package yamldiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sortedDiff(a, b Map) Result {
	res := Diff(a, b)
	res.Sort()
	return res
}

func TestDiff_Basic(t *testing.T) {
	a := Map{
		"a": Scalar("1"),
		"b": Scalar("2"),
		"c": Map{"d": Scalar("4"), "e": Scalar("5")},
	}
	b := Map{
		"a": Scalar("1"),
		"b": Scalar("3"),
		"f": Scalar("6"),
		"c": Map{"d": Scalar("4"), "g": Scalar("7")},
	}

	res := sortedDiff(a, b)
	assert.Equal(t, []string{"/c/e"}, res.LeftOnly)
	assert.Equal(t, []string{"/c/g", "/f"}, res.RightOnly)
	assert.Equal(t, []string{"/a", "/c/d"}, res.Same)
	assert.Equal(t, []string{"/b"}, res.Changed)
}

func TestDiff_DifferentKeysInNested(t *testing.T) {
	a := Map{
		"a": Scalar("1"),
		"b": Scalar("2"),
		"c": Map{"d": Scalar("4"), "e": Scalar("5"), "f": Scalar("6"), "h": Scalar("10")},
	}
	b := Map{
		"a": Scalar("1"),
		"b": Scalar("2"),
		"c": Map{"d": Scalar("4"), "e": Scalar("5"), "f": Scalar("7"), "g": Scalar("10")},
	}

	res := sortedDiff(a, b)
	assert.Equal(t, []string{"/c/h"}, res.LeftOnly)
	assert.Equal(t, []string{"/c/g"}, res.RightOnly)
	assert.Equal(t, []string{"/a", "/b", "/c/d", "/c/e"}, res.Same)
	assert.Equal(t, []string{"/c/f"}, res.Changed)
}

func TestDiff_AllDifferent(t *testing.T) {
	a := Map{
		"a": Scalar("1"),
		"b": Scalar("2"),
		"c": Map{"d": Scalar("4"), "e": Scalar("5")},
	}
	b := Map{
		"g": Scalar("6"),
		"h": Scalar("7"),
		"i": Map{"j": Scalar("8"), "k": Scalar("9")},
	}

	res := sortedDiff(a, b)
	// absent submaps are reported once, at their own path
	assert.Equal(t, []string{"/a", "/b", "/c"}, res.LeftOnly)
	assert.Equal(t, []string{"/g", "/h", "/i"}, res.RightOnly)
	assert.Empty(t, res.Same)
	assert.Empty(t, res.Changed)
}

func TestDiff_EmptyMapsAreSameLeaves(t *testing.T) {
	doc := Map{
		"0.0.0": Map{
			"live-reloaded-config":   Map{},
			"rolling-restart-config": Map{},
		},
	}

	res := sortedDiff(doc, doc)
	assert.Empty(t, res.LeftOnly)
	assert.Empty(t, res.RightOnly)
	assert.Empty(t, res.Changed)
	assert.Equal(t, []string{"/0.0.0/live-reloaded-config", "/0.0.0/rolling-restart-config"}, res.Same)
}

func TestDiff_EmptyAgainstNonEmptyMap(t *testing.T) {
	a := Map{"m": Map{}}
	b := Map{"m": Map{"x": Scalar("1")}}

	res := sortedDiff(a, b)
	assert.Empty(t, res.LeftOnly)
	assert.Equal(t, []string{"/m/x"}, res.RightOnly)
	assert.Empty(t, res.Same)
	assert.Empty(t, res.Changed)
}

func TestDiff_Lists(t *testing.T) {
	versions := func(vs ...string) List {
		l := List{}
		for _, v := range vs {
			l = append(l, Scalar(v))
		}
		return l
	}

	for _, c := range []struct {
		name    string
		a, b    List
		changed bool
	}{
		{"different element", versions("1.0.0", "1.0.1"), versions("1.0.0", "1.0.2"), true},
		{"same", versions("1.0.0", "1.0.1"), versions("1.0.0", "1.0.1"), false},
		{"different length", versions("1.0.0", "1.0.1"), versions("1.0.0"), true},
		{"different order", versions("1.0.0", "1.0.1"), versions("1.0.1", "1.0.0"), true},
		{"both empty", versions(), versions(), false},
		{"nested maps equal", List{Map{"k": Scalar("v")}}, List{Map{"k": Scalar("v")}}, false},
		{"nested maps differ", List{Map{"k": Scalar("v")}}, List{Map{"k": Scalar("w")}}, true},
	} {
		t.Run(c.name, func(t *testing.T) {
			res := sortedDiff(Map{"versions": c.a}, Map{"versions": c.b})
			assert.Empty(t, res.LeftOnly)
			assert.Empty(t, res.RightOnly)
			if c.changed {
				assert.Equal(t, []string{"/versions"}, res.Changed)
				assert.Empty(t, res.Same)
			} else {
				assert.Equal(t, []string{"/versions"}, res.Same)
				assert.Empty(t, res.Changed)
			}
		})
	}
}

func TestDiff_MismatchedKinds(t *testing.T) {
	a := Map{
		"map-list":    Map{"x": Scalar("1")},
		"scalar-map":  Scalar("1"),
		"list-scalar": List{Scalar("1")},
		"empty-map":   Map{},
	}
	b := Map{
		"map-list":    List{Scalar("1")},
		"scalar-map":  Map{"x": Scalar("1")},
		"list-scalar": Scalar("1"),
		"empty-map":   List{},
	}

	res := sortedDiff(a, b)
	assert.Equal(t, []string{"/empty-map", "/list-scalar", "/map-list", "/scalar-map"}, res.Changed)
	assert.Empty(t, res.LeftOnly)
	assert.Empty(t, res.RightOnly)
	assert.Empty(t, res.Same)
}

func TestDiff_Reflexive(t *testing.T) {
	doc := Map{
		"a": Scalar("1"),
		"l": List{Scalar("x"), Map{"y": Scalar("z")}},
		"e": Map{},
		"n": Map{
			"deep": Map{"deeper": Map{"leaf": Scalar("null")}},
			"s":    Scalar("true"),
		},
	}

	res := sortedDiff(doc, doc)
	assert.Empty(t, res.LeftOnly)
	assert.Empty(t, res.RightOnly)
	assert.Empty(t, res.Changed)
	assert.Equal(t, []string{"/a", "/e", "/l", "/n/deep/deeper/leaf", "/n/s"}, res.Same)
	assert.True(t, res.Identical())
}

func TestDiff_EmptyDocuments(t *testing.T) {
	res := Diff(Map{}, Map{})
	assert.Empty(t, res.LeftOnly)
	assert.Empty(t, res.RightOnly)
	assert.Empty(t, res.Same)
	assert.Empty(t, res.Changed)
}

// Every key at every level lands in exactly one bucket.
func TestDiff_Partition(t *testing.T) {
	a := Map{
		"a": Scalar("1"), "b": Scalar("2"), "c": Map{"d": Scalar("4"), "e": List{}},
		"x": Map{"y": Map{"z": Scalar("1"), "w": Scalar("2")}},
	}
	b := Map{
		"a": Scalar("1"), "b": List{}, "f": Scalar("6"), "c": Map{"d": Scalar("5"), "g": Map{}},
		"x": Map{"y": Map{"z": Scalar("1"), "v": Scalar("3")}},
	}

	res := Diff(a, b)
	seen := map[string]int{}
	for _, bucket := range [][]string{res.LeftOnly, res.RightOnly, res.Same, res.Changed} {
		for _, p := range bucket {
			seen[p]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s classified %d times", p, n)
	}
	assert.Len(t, seen, 9)
}

func TestDiff_MembershipIsStable(t *testing.T) {
	a := Map{"a": Scalar("1"), "b": Map{"c": Scalar("2"), "d": Scalar("3")}, "e": Scalar("4")}
	b := Map{"a": Scalar("2"), "b": Map{"c": Scalar("2"), "f": Scalar("3")}, "g": Scalar("4")}

	want := sortedDiff(a, b)
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, sortedDiff(a, b))
	}
}

func TestDiff_KeyWithSeparator(t *testing.T) {
	// no escaping: "a/b" at the top level is indistinguishable from b under a
	res := sortedDiff(Map{"a/b": Scalar("1")}, Map{"a": Map{"b": Scalar("1")}})
	assert.Equal(t, []string{"/a/b"}, res.LeftOnly)
	assert.Equal(t, []string{"/a"}, res.RightOnly)
}

func TestDiffDocuments(t *testing.T) {
	a := map[string]interface{}{"versions": []interface{}{"1.0.0", "1.0.1"}}
	b := map[string]interface{}{"versions": []interface{}{"1.0.0", "1.0.2"}}

	res := DiffDocuments(a, b)
	assert.Equal(t, []string{"/versions"}, res.Changed)
	assert.Empty(t, res.Same)
	assert.Empty(t, res.LeftOnly)
	assert.Empty(t, res.RightOnly)
}

func TestResult_Summarise(t *testing.T) {
	res := Result{
		LeftOnly:  []string{"/c/e"},
		RightOnly: []string{"/f"},
		Same:      []string{"/a"},
		Changed:   []string{"/b"},
	}

	var buf bytes.Buffer
	res.Summarise(&buf, false)
	assert.Equal(t, "- /c/e\n+ /f\n~ /b\n", buf.String())

	buf.Reset()
	res.Summarise(&buf, true)
	assert.Equal(t, "- /c/e\n+ /f\n~ /b\n= /a\n", buf.String())
}
