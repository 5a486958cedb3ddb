package xsssanitizer

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// uriAttributes are checked for script-executing schemes on every element.
var uriAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"lowsrc":     true,
	"dynsrc":     true,
	"action":     true,
	"formaction": true,
	"data":       true,
	"background": true,
	"poster":     true,
	"codebase":   true,
	"cite":       true,
	"longdesc":   true,
	"usemap":     true,
}

// scriptSchemes run code instead of navigating or fetching.
var scriptSchemes = map[string]bool{
	"javascript": true,
	"vbscript":   true,
	"livescript": true,
	"mocha":      true,
}

// Entity decoding stops after this many passes even if the value keeps
// shrinking.
const maxDecodePasses = 4

// CanonicalURI returns the form of v a user agent effectively sees when
// resolving the scheme: character references decoded, compatibility
// characters folded, invisible and whitespace characters removed, and
// lowercased.
func CanonicalURI(v string) string {
	for i := 0; i < maxDecodePasses; i++ {
		d := html.UnescapeString(v)
		if d == v {
			break
		}
		v = d
	}
	v = norm.NFKC.String(v)
	return strings.Map(func(r rune) rune {
		if isInvisible(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, v)
}

// IsScriptURI reports whether v canonicalises to a script-executing URI.
func IsScriptURI(v string) bool {
	c := CanonicalURI(v)
	i := strings.IndexByte(c, ':')
	if i <= 0 {
		return false
	}
	return scriptSchemes[c[:i]]
}

func isInvisible(r rune) bool {
	switch {
	case r <= 0x20, r == 0x7f:
		return true
	case unicode.IsSpace(r):
		return true
	case unicode.In(r, unicode.Cc, unicode.Cf):
		return true
	}
	return false
}

// refreshTarget extracts the URL from a meta refresh content value such
// as "0; url=http://example.com".
func refreshTarget(content string) string {
	i := strings.IndexAny(content, ";,")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(content[i+1:], " \t\n\f\r")
	if len(rest) >= 3 && strings.EqualFold(rest[:3], "url") {
		rest = strings.TrimLeft(rest[3:], " \t\n\f\r")
		if strings.HasPrefix(rest, "=") {
			rest = rest[1:]
		}
	}
	return strings.Trim(strings.TrimSpace(rest), `"'`)
}
