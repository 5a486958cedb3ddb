// Package xsssanitizer provides a deny-list HTML sanitizer that strips
// script-capable markup from HTML fragments and parsed documents.
//
// # Overview
//
// xsssanitizer parses HTML with golang.org/x/net/html (or takes a tree
// you already parsed), walks it, and removes:
//   - elements whose tag is in the policy's removal set, either unwrapping
//     them (children promoted into their place) or discarding them with
//     their subtree ([Policy.KeepInnerHTML])
//   - attributes whose name matches a removal pattern: exact ("accesskey"),
//     prefix ("on*"), suffix ("*tle") or everything ("*")
//   - URI attributes (href, src, lowsrc, action, formaction, data, ...)
//     whose value resolves to javascript:, vbscript: or a similar scheme
//     after entity decoding and invisible-character stripping
//   - meta refresh elements that redirect to such a URI
//
// Anything not named by the policy is kept. Plain text is never altered
// beyond escaping &, < and > on output.
//
// # Policies
//
// A [Policy] is immutable. [DefaultPolicy] removes script, style,
// noembed, noframes, noscript, object, embed, applet and svg (keeping
// their inner HTML), every on* attribute and accesskey. The With*
// methods derive new policies; [Sanitizer] setters swap the policy used
// by subsequent passes:
//
//	s := xsssanitizer.New().
//		SetElementsToRemove([]string{"div"}).
//		SetKeepInnerHTMLOnRemove(false)
//
// Passing an empty slice to a setter disables that kind of removal.
//
// # Trees
//
// [Sanitizer.SanitizeDocument] and [Sanitizer.SanitizeNode] work in place
// on *html.Node values. [Render] serialises the result the same way
// [Sanitizer.SanitizeString] does.
//
// # Thread Safety
//
// Policies are immutable and a Sanitizer snapshots its policy at the
// start of each pass, so concurrent passes over independent trees are
// safe.
package xsssanitizer
