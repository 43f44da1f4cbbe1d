package framework

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter decides whether a specific test should run.
type Filter func(TestID) bool

// RegexFilters selects tests by name with optional must-match and
// must-not-match pattern lists. Patterns are slash-separated regular
// expressions applied per path element, in the style of go test -run, so
// "users/^create$" selects tests named create inside groups matching users.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) AsFilter(id TestID) bool {
	// A group passes MustMatch when its path prefix is compatible with a
	// pattern, so that matching subtests inside it still run. MustNotMatch
	// only excludes once the whole pattern applies.
	return (!r.MustMatch.IsDefined() || r.MustMatch.MatchPrefix(id.Path)) &&
		!r.MustNotMatch.MatchFull(id.Path)
}

// RegexList is a list of slash-separated regular expression patterns. It
// implements flag.Value so a command-line flag can be given multiple times
// to add patterns.
type RegexList struct {
	patterns [][]*regexp.Regexp
	raw      []string
}

func (r RegexList) String() string {
	var ss []string
	for _, s := range r.raw {
		ss = append(ss, `"`+s+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser.
func (r *RegexList) Set(value string) error {
	var compiled []*regexp.Regexp
	for _, part := range strings.Split(value, "/") {
		rx, err := regexp.Compile(part)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		compiled = append(compiled, rx)
	}
	r.patterns = append(r.patterns, compiled)
	r.raw = append(r.raw, value)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

// MatchPrefix reports whether some pattern matches the path on every element
// both have. A path shorter than a pattern can still match, since a subtest
// may complete the pattern later.
func (r RegexList) MatchPrefix(path []string) bool {
	for _, pattern := range r.patterns {
		if matchElements(pattern, path, false) {
			return true
		}
	}
	return false
}

// MatchFull reports whether some pattern is fully satisfied by the path, so
// a pattern deeper than the path does not match.
func (r RegexList) MatchFull(path []string) bool {
	for _, pattern := range r.patterns {
		if matchElements(pattern, path, true) {
			return true
		}
	}
	return false
}

func matchElements(pattern []*regexp.Regexp, path []string, needAllElements bool) bool {
	if needAllElements && len(path) < len(pattern) {
		return false
	}
	n := len(pattern)
	if len(path) < n {
		n = len(path)
	}
	for i := 0; i < n; i++ {
		if !pattern[i].MatchString(path[i]) {
			return false
		}
	}
	return true
}
