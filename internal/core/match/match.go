// Package match pairs libraries across an original and a spliced dependency
// tree by identity key.
package match

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// DependencyMatch pairs an original library with its spliced counterpart.
type DependencyMatch struct {
	Original string `json:"original"`
	Spliced  string `json:"spliced"`
}

// IdentityKey is the basename of path truncated at the first ".", so
// libfoo.so.1 and libfoo.so.2 share the key "libfoo".
func IdentityKey(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// SharesPrefix reports whether the basename of candidate starts with the
// identity key of lib.
func SharesPrefix(lib, candidate string) bool {
	return strings.HasPrefix(filepath.Base(candidate), IdentityKey(lib))
}

// MatchByPrefix pairs entries of two dependency lookups whose keys share an
// identity key and returns the pairs of their values. Keys present on only
// one side produce nothing. When several entries on a side share a key every
// pairing is returned. Output is sorted by key.
func MatchByPrefix(original, spliced map[string]string) []DependencyMatch {
	left := group(original)
	right := group(spliced)

	var matches []DependencyMatch
	for _, key := range slices.Sorted(maps.Keys(left)) {
		candidates, ok := right[key]
		if !ok {
			continue
		}
		for _, o := range left[key] {
			for _, s := range candidates {
				matches = append(matches, DependencyMatch{Original: o, Spliced: s})
			}
		}
	}
	return matches
}

// Unmatched returns the sorted identity keys of original with no spliced
// counterpart.
func Unmatched(original, spliced map[string]string) []string {
	right := group(spliced)
	var out []string
	for key := range group(original) {
		if _, ok := right[key]; !ok {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

func group(deps map[string]string) map[string][]string {
	out := make(map[string][]string, len(deps))
	for _, k := range slices.Sorted(maps.Keys(deps)) {
		key := IdentityKey(k)
		out[key] = append(out[key], deps[k])
	}
	return out
}
