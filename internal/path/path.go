// Package path implements TFVC item-path semantics: absolute-path checks,
// containment, overlap, leaf extraction, and the path-rewriting helpers the
// topology analyzer and mapping views rely on. All comparisons are
// case-insensitive, matching TFVC's case-preserving-but-insensitive paths.
package path

import (
	"errors"
	"strings"
)

// ErrTrailingSlash is returned by operations given a path ending in "/".
var ErrTrailingSlash = errors.New("path: trailing slash not allowed")

// ErrNotContained is returned when an operation requires containment that
// does not hold between its arguments.
var ErrNotContained = errors.New("path: not contained")

// IsAbsolute reports whether p is a TFVC absolute path ("$/..." form).
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "$/")
}

func hasTrailingSlash(p string) bool {
	return strings.HasSuffix(p, "/")
}

// Contains reports whether b is strictly under a: |b| > |a|+1, b[|a|] == '/',
// and the prefix of b up to that point equals a case-insensitively.
func Contains(a, b string) bool {
	if len(b) <= len(a)+1 {
		return false
	}
	if b[len(a)] != '/' {
		return false
	}
	return strings.EqualFold(a, b[:len(a)])
}

// IsOrContains reports whether a and b are the same path (case-insensitive)
// or a Contains b.
func IsOrContains(a, b string) bool {
	return strings.EqualFold(a, b) || Contains(a, b)
}

// Overlaps reports whether a and b are related by containment in either
// direction, including equality.
func Overlaps(a, b string) bool {
	return IsOrContains(a, b) || IsOrContains(b, a)
}

// Leaf returns the substring of p after the last '/', or all of p if there
// is no '/'.
func Leaf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ReplaceContaining requires IsOrContains(oldContaining, p) and returns
// newContaining followed by the suffix of p after oldContaining.
func ReplaceContaining(p, oldContaining, newContaining string) (string, error) {
	if !IsOrContains(oldContaining, p) {
		return "", ErrNotContained
	}
	if strings.EqualFold(oldContaining, p) {
		return newContaining, nil
	}
	return newContaining + p[len(oldContaining):], nil
}

// RemoveContaining requires IsOrContains(containing, p) and returns the
// suffix of p after "containing/" (empty if p equals containing).
func RemoveContaining(p, containing string) (string, error) {
	if !IsOrContains(containing, p) {
		return "", ErrNotContained
	}
	if strings.EqualFold(containing, p) {
		return "", nil
	}
	return p[len(containing)+1:], nil
}

// StripCommonTrailingSegments strips matching trailing path segments from
// src and tgt until they diverge, returning the largest common sub-path
// pair. If the two paths turn out to be wholly equal once stripped, it
// returns ("", "").
//
// Example: StripCommonTrailingSegments("$/X/A/Sub", "$/X/B/Sub") returns
// ("$/X/A", "$/X/B").
func StripCommonTrailingSegments(src, tgt string) (string, string) {
	for strings.Contains(src, "/") {
		seg := "/" + Leaf(src)
		if len(tgt) < len(seg) || !strings.EqualFold(tgt[len(tgt)-len(seg):], seg) {
			break
		}
		src = src[:len(src)-len(seg)]
		tgt = tgt[:len(tgt)-len(seg)]
	}
	if strings.EqualFold(src, tgt) {
		return "", ""
	}
	return src, tgt
}

// NonOverlappingUnion returns paths with no two entries where one contains
// the other. Later entries in the input that contain an earlier entry
// displace it; an earlier entry that already contains a later one wins and
// the later one is dropped.
func NonOverlappingUnion(paths []string) []string {
	var result []string
	for _, p := range paths {
		skip := false
		filtered := result[:0:0]
		for _, q := range result {
			if IsOrContains(q, p) {
				skip = true
			}
			if Contains(p, q) {
				continue
			}
			filtered = append(filtered, q)
		}
		result = filtered
		if !skip {
			result = append(result, p)
		}
	}
	return result
}

// Validate rejects paths with a trailing slash, matching the "all
// operations reject inputs with trailing slashes" rule. Callers that accept
// raw external input (CLI flags, History Source records) should call this
// before passing paths into the rest of the package.
func Validate(p string) error {
	if hasTrailingSlash(p) {
		return ErrTrailingSlash
	}
	return nil
}
