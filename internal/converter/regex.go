package converter

// WebKit's content blocker accepts a strict subset of JavaScript regular
// expressions, compiled into finite state machines:
//
//   - supported: . [a-z] [^a-z] () * + ? ^ (leading) $ (trailing) and escaped literals
//   - unsupported: \w \d \s \b and their negations, {n} {n,m}, | outside classes,
//     lookarounds, named groups, \p{...} and non-ASCII characters
//
// See https://webkit.org/blog/3476/content-blockers-first-look/

import (
	"regexp"
	"strings"
)

// Regex fragments ported from uBlock's make-rulesets.js
const (
	// Separator matches any non-alphanumeric character (WebKit doesn't support disjunctions)
	restrSeparator = `[^%.0-9a-z_-]`
	// Hostname anchor for patterns starting with ||
	restrHostnameAnchor1 = `^[a-z-]+://(?:[^/?#]+\.)?`
	// Hostname anchor for patterns starting with ||.
	restrHostnameAnchor2 = `^[a-z-]+://(?:[^/?#]+)?`
)

// Anchor bits of an ABP pattern
const (
	anchorRight    = 1 << iota // trailing |
	anchorLeft                 // leading |
	anchorHostname             // leading ||
)

var (
	rePlainChars            = regexp.MustCompile(`[.+?${}()|[\]\\]`)
	reDanglingAsterisks     = regexp.MustCompile(`^\*+|\*+$`)
	reAsterisks             = regexp.MustCompile(`\*+`)
	reNumericQuantifierOpen = regexp.MustCompile(`\{[0-9]+,\}`)
	reNumericQuantifier     = regexp.MustCompile(`\{[0-9]+(,[0-9]+)?\}`)
	reNonASCII              = regexp.MustCompile(`[^\x00-\x7F]`)
)

// shorthandClasses lists the class escapes WebKit rejects with their explicit
// equivalent; an empty expansion cannot be rewritten.  Negated forms come first
// so that expansion never sees a partially replaced escape.
var shorthandClasses = []struct {
	escape    string
	expansion string
}{
	{`\W`, `[^a-zA-Z0-9_]`},
	{`\w`, `[a-zA-Z0-9_]`},
	{`\D`, `[^0-9]`},
	{`\d`, `[0-9]`},
	{`\S`, `[^ \t\n\r\f\v]`},
	{`\s`, `[ \t\n\r\f\v]`},
	{`\b`, ""},
	{`\B`, ""},
}

// unsupportedConstructs are group and escape prefixes WebKit cannot compile
var unsupportedConstructs = []struct {
	prefix string
	name   string
}{
	{`(?<!`, "negative lookbehind"},
	{`(?<=`, "positive lookbehind"},
	{`(?=`, "positive lookahead"},
	{`(?!`, "negative lookahead"},
	{`(?P<`, "named group"},
	{`(?<`, "named group"},
	{`\p{`, "unicode property"},
	{`\P{`, "unicode property"},
}

var classExpander = func() *strings.Replacer {
	var oldnew []string
	for _, sc := range shorthandClasses {
		if sc.expansion != "" {
			oldnew = append(oldnew, sc.escape, sc.expansion)
		}
	}
	return strings.NewReplacer(oldnew...)
}()

// PatternToRegex converts an ABP/uBlock pattern to a WebKit url-filter
func PatternToRegex(pattern string) string {
	if pattern == "" || pattern == "*" {
		return ".*"
	}

	s := pattern
	anchor := 0

	if rest, ok := strings.CutPrefix(s, "||"); ok {
		anchor, s = anchorHostname, rest
	} else if rest, ok := strings.CutPrefix(s, "|"); ok {
		anchor, s = anchorLeft, rest
	}

	if rest, ok := strings.CutSuffix(s, "|"); ok {
		anchor |= anchorRight
		s = rest
	}

	// Already a regex: only the unsupported shorthands need rewriting
	if len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		return expandCharacterClasses(s[1 : len(s)-1])
	}

	reStr := rePlainChars.ReplaceAllString(s, `\$0`)
	reStr = strings.ReplaceAll(reStr, "^", restrSeparator)
	reStr = reDanglingAsterisks.ReplaceAllString(reStr, "")
	reStr = reAsterisks.ReplaceAllString(reStr, `.*`)

	switch {
	case anchor&anchorHostname != 0 && strings.HasPrefix(reStr, `\.`):
		reStr = restrHostnameAnchor2 + reStr
	case anchor&anchorHostname != 0:
		reStr = restrHostnameAnchor1 + reStr
	case anchor&anchorLeft != 0:
		reStr = "^" + reStr
	}

	if anchor&anchorRight != 0 {
		reStr += "$"
	}

	return reStr
}

// expandCharacterClasses rewrites shorthand classes into explicit ones and
// approximates {n,} with +
func expandCharacterClasses(pattern string) string {
	pattern = classExpander.Replace(pattern)
	return reNumericQuantifierOpen.ReplaceAllString(pattern, `+`)
}

// PatternIssue describes a WebKit incompatibility found in a regex
type PatternIssue struct {
	Issue       string
	Fixable     bool
	Replacement string
}

// CheckPattern lists the WebKit incompatibilities of a regex.  Fixable issues
// are the ones expandCharacterClasses rewrites.
func CheckPattern(pattern string) []PatternIssue {
	var issues []PatternIssue

	if _, err := regexp.Compile(pattern); err != nil {
		issues = append(issues, PatternIssue{Issue: "syntax: " + err.Error()})
	}

	for _, sc := range shorthandClasses {
		if strings.Contains(pattern, sc.escape) {
			issues = append(issues, PatternIssue{
				Issue:       "shorthand character class: " + sc.escape,
				Fixable:     sc.expansion != "",
				Replacement: sc.expansion,
			})
		}
	}

	for _, m := range reNumericQuantifierOpen.FindAllString(pattern, -1) {
		issues = append(issues, PatternIssue{Issue: "numeric quantifier: " + m, Fixable: true, Replacement: "+"})
	}
	for _, m := range reNumericQuantifier.FindAllString(pattern, -1) {
		issues = append(issues, PatternIssue{Issue: "numeric quantifier: " + m})
	}

	if containsDisjunction(pattern) {
		issues = append(issues, PatternIssue{Issue: "disjunction (|) outside character class"})
	}

	if reNonASCII.MatchString(pattern) {
		issues = append(issues, PatternIssue{Issue: "non-ASCII characters"})
	}

	for _, uc := range unsupportedConstructs {
		if strings.Contains(pattern, uc.prefix) {
			issues = append(issues, PatternIssue{Issue: uc.name})
		}
	}

	return issues
}

// ValidateRegex reports whether pattern can be used as a url-filter as is
func ValidateRegex(pattern string) bool {
	return len(CheckPattern(pattern)) == 0
}

// DescribeIssues joins the issue descriptions
func DescribeIssues(issues []PatternIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.Issue)
	}
	return strings.Join(parts, ", ")
}

// containsDisjunction checks if a regex contains | outside of character classes
func containsDisjunction(pattern string) bool {
	inCharClass := false
	escaped := false

	for _, ch := range pattern {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '[':
			inCharClass = true
		case ch == ']':
			inCharClass = false
		case ch == '|' && !inCharClass:
			return true
		}
	}
	return false
}
