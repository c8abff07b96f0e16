package yamldiff

// Separator goes in front of every key of a path.
const Separator = "/"

// JoinPath appends key to the path prefix. The root prefix is the
// empty string, so a top-level key "a" gives "/a".
//
// Keys are not escaped; a key that itself contains the separator
// produces a path that cannot be told apart from a deeper one.
func JoinPath(prefix, key string) string {
	return prefix + Separator + key
}
