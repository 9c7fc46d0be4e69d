package planner

import "regexp"

// disallowedRefChars matches any run of characters not permitted in a git
// ref component: controls (including DEL and above), space, backslash,
// '?', '*', '[', '~', '^', ':' (§4.F step 5).
var disallowedRefChars = regexp.MustCompile(`[\x00-\x20\\?*\[~^:\x7f-\x{10FFFF}]+`)

// BranchRefName derives the git ref name for branch from its TFVC leaf
// path, collapsing every run of disallowed characters into a single '-' and
// trimming any '-' left at either end. If branch is the trunk, trunkRefName
// is returned unchanged.
func BranchRefName(leaf string, isTrunk bool, trunkRefName string) string {
	if isTrunk {
		return trunkRefName
	}
	name := disallowedRefChars.ReplaceAllString(leaf, "-")
	name = trimDashes(name)
	if name == "" {
		name = "branch"
	}
	return name
}

func trimDashes(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == '-' {
		start++
	}
	for end > start && s[end-1] == '-' {
		end--
	}
	return s[start:end]
}
