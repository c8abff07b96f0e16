/*
Package yamldiff compares two configuration documents, key path by key
path.

Documents are first normalized into a small tree of scalars, maps and
lists (see Normalize). Diff then walks two such trees side by side and
puts every path into one of four buckets: present only on the left,
present only on the right, present on both with the same value, or
present on both with a different value.

Lists are compared as a whole. Nested maps are descended into, except
when both sides are empty, in which case the map is treated as an
equal leaf.
*/
package yamldiff
