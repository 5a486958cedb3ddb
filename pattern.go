package xsssanitizer

import "strings"

type patternKind int

const (
	matchExact patternKind = iota
	matchPrefix
	matchSuffix
	matchAll
)

// attributePattern is a compiled attributes-to-remove rule.
type attributePattern struct {
	raw  string
	kind patternKind
	text string
}

// compilePattern turns "on*", "*tle", "*" or "class" into a matcher.
// A "*" anywhere other than the very start or end leaves the pattern as
// an exact literal, which never matches a real attribute name.
func compilePattern(raw string) (attributePattern, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return attributePattern{}, false
	}
	p := attributePattern{raw: s, kind: matchExact, text: s}
	switch {
	case s == "*":
		p.kind = matchAll
		p.text = ""
	case strings.HasPrefix(s, "*") && !strings.Contains(s[1:], "*"):
		p.kind = matchSuffix
		p.text = s[1:]
	case strings.HasSuffix(s, "*") && !strings.Contains(s[:len(s)-1], "*"):
		p.kind = matchPrefix
		p.text = s[:len(s)-1]
	}
	return p, true
}

// matches reports whether the lowercase attribute name matches.
func (p attributePattern) matches(name string) bool {
	switch p.kind {
	case matchAll:
		return true
	case matchPrefix:
		return strings.HasPrefix(name, p.text)
	case matchSuffix:
		return strings.HasSuffix(name, p.text)
	default:
		return name == p.text
	}
}

func compilePatterns(raw []string) []attributePattern {
	out := make([]attributePattern, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		p, ok := compilePattern(r)
		if !ok || seen[p.raw] {
			continue
		}
		seen[p.raw] = true
		out = append(out, p)
	}
	return out
}
