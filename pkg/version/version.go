// Package version orders package version strings the way users expect
// ("1.10" after "1.9", "2.0a" after "2.0").
package version

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// componentPattern splits a version into a digit run with its trailing
// letters, or a bare letter run. Everything else (dots, dashes, underscores,
// slashes) is a separator.
var componentPattern = regexp.MustCompile(`(\d+)([a-zA-Z]*)|([a-zA-Z]+)`)

// WildcardSuffix marks a version request as a prefix match.
const WildcardSuffix = "*"

// Component is one element of a version key: a numeric value and the letters
// directly following it. "10" is {10, ""}, "0a" is {0, "a"} and a bare letter
// run such as "beta" is {0, "beta"}.
type Component struct {
	Num  uint64
	Text string

	// Digits holds a digit run too long for Num, without leading zeros.
	// Num is then math.MaxUint64.
	Digits string
}

// Key is the comparable form of a version string.
type Key []Component

// ParseKey converts a version string into its comparable key.
func ParseKey(v string) Key {
	matches := componentPattern.FindAllStringSubmatch(v, -1)
	key := make(Key, 0, len(matches))
	for _, m := range matches {
		if m[1] == "" {
			key = append(key, Component{Text: m[3]})
			continue
		}
		c := Component{Text: m[2]}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			n = math.MaxUint64
			c.Digits = strings.TrimLeft(m[1], "0")
		}
		c.Num = n
		key = append(key, c)
	}
	return key
}

// compareComponent orders by number, then by the letter suffix.
func compareComponent(a, b Component) int {
	switch {
	case a.Num < b.Num:
		return -1
	case a.Num > b.Num:
		return 1
	}
	if c := compareDigits(a.Digits, b.Digits); c != 0 {
		return c
	}
	return strings.Compare(a.Text, b.Text)
}

// compareDigits orders overflowing digit runs by length, then lexically. An
// empty run fits in uint64 and sorts below any overflowing one.
func compareDigits(a, b string) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return strings.Compare(a, b)
}

// CompareKeys compares two keys component-wise. A key that is a strict
// prefix of the other sorts first.
func CompareKeys(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareComponent(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Compare returns -1, 0 or 1. Versions with equal keys ("1.0" and "1-0")
// are ordered by their raw text so the ordering is total.
func Compare(a, b string) int {
	if c := CompareKeys(ParseKey(a), ParseKey(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b in ascending order.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Order returns a sorted copy of versions. The input is not modified.
func Order(versions []string, descending bool) []string {
	out := make([]string, len(versions))
	copy(out, versions)
	keys := make(map[string]Key, len(out))
	for _, v := range out {
		keys[v] = ParseKey(v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareKeys(keys[out[i]], keys[out[j]])
		if c == 0 {
			c = strings.Compare(out[i], out[j])
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Newest returns the highest version, or "" for an empty list.
func Newest(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	return Order(versions, true)[0]
}

// IsWildcard reports whether a version request ends with the wildcard marker.
func IsWildcard(token string) bool {
	return strings.HasSuffix(token, WildcardSuffix)
}

// MatchPrefix strips the wildcard marker from token and returns the highest
// version starting with the remaining prefix.
func MatchPrefix(versions []string, token string) (string, bool) {
	prefix := strings.TrimSuffix(token, WildcardSuffix)
	for _, v := range Order(versions, true) {
		if strings.HasPrefix(v, prefix) {
			return v, true
		}
	}
	return "", false
}

// Dedupe removes repeated versions keeping the first occurrence.
func Dedupe(versions []string) []string {
	seen := make(map[string]struct{}, len(versions))
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
