package yamldiff

import (
	"fmt"
	"io"
	"sort"
)

// Result holds the paths classified by Diff. Every path appears in
// exactly one of the four lists. The order within each list follows
// map iteration and is not stable between runs; call Sort for a
// reproducible order.
type Result struct {
	LeftOnly  []string `json:"left_only" yaml:"left_only"`
	RightOnly []string `json:"right_only" yaml:"right_only"`
	Same      []string `json:"same" yaml:"same"`
	Changed   []string `json:"changed" yaml:"changed"`
}

// level is an entry of the work list: a pair of maps found at the same
// path on both sides.
type level struct {
	prefix string
	a, b   Map
}

// Diff compares a with b and classifies every key path.
//
// A key present only in a is LeftOnly, only in b RightOnly. A key on
// both sides holding scalars is Same when the texts are equal and
// Changed otherwise; holding lists it is Same when the lists are
// structurally equal, including order, and Changed otherwise. Two maps
// that are both empty count as Same; two maps otherwise are expanded
// and their keys classified in turn, the map's own path going in no
// bucket. Values of different kinds are Changed.
//
// Nested maps are put on a work list rather than recursed into, so the
// depth of the documents does not bound the call stack.
func Diff(a, b Map) Result {
	res := Result{
		LeftOnly:  []string{},
		RightOnly: []string{},
		Same:      []string{},
		Changed:   []string{},
	}

	work := []level{{prefix: "", a: a, b: b}}
	for len(work) > 0 {
		l := work[len(work)-1]
		work = work[:len(work)-1]

		for k, va := range l.a {
			path := JoinPath(l.prefix, k)
			vb, found := l.b[k]
			if !found {
				res.LeftOnly = append(res.LeftOnly, path)
				continue
			}

			switch va := va.(type) {
			case Map:
				mb, ok := vb.(Map)
				switch {
				case !ok:
					res.Changed = append(res.Changed, path)
				case len(va) == 0 && len(mb) == 0:
					res.Same = append(res.Same, path)
				default:
					work = append(work, level{prefix: path, a: va, b: mb})
				}
			case List:
				if lb, ok := vb.(List); ok && Equal(va, lb) {
					res.Same = append(res.Same, path)
				} else {
					res.Changed = append(res.Changed, path)
				}
			case Scalar:
				if sb, ok := vb.(Scalar); ok && va == sb {
					res.Same = append(res.Same, path)
				} else {
					res.Changed = append(res.Changed, path)
				}
			default:
				res.Changed = append(res.Changed, path)
			}
		}

		for k := range l.b {
			if _, found := l.a[k]; !found {
				res.RightOnly = append(res.RightOnly, JoinPath(l.prefix, k))
			}
		}
	}
	return res
}

// DiffDocuments normalizes two generic documents and diffs them.
func DiffDocuments(a, b interface{}) Result {
	return Diff(Normalize(a), Normalize(b))
}

// Sort puts each of the four lists in lexical order.
func (r Result) Sort() {
	sort.Strings(r.LeftOnly)
	sort.Strings(r.RightOnly)
	sort.Strings(r.Same)
	sort.Strings(r.Changed)
}

// Identical is true when nothing was found only on one side and
// nothing changed.
func (r Result) Identical() bool {
	return len(r.LeftOnly) == 0 && len(r.RightOnly) == 0 && len(r.Changed) == 0
}

// Summarise writes one line per differing path: "-" for left only,
// "+" for right only, "~" for changed, and, if withSame is set, "="
// for paths that are the same.
func (r Result) Summarise(out io.Writer, withSame bool) {
	for _, p := range r.LeftOnly {
		fmt.Fprintf(out, "- %s\n", p)
	}
	for _, p := range r.RightOnly {
		fmt.Fprintf(out, "+ %s\n", p)
	}
	for _, p := range r.Changed {
		fmt.Fprintf(out, "~ %s\n", p)
	}
	if withSame {
		for _, p := range r.Same {
			fmt.Fprintf(out, "= %s\n", p)
		}
	}
}
