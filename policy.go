package xsssanitizer

import (
	"sort"
	"strings"
)

// DefaultElementsToRemove lists the tags removed by DefaultPolicy.
var DefaultElementsToRemove = []string{
	"script", "style",
	"noembed", "noframes", "noscript",
	"object", "embed", "applet",
	"svg",
}

// DefaultAttributesToRemove lists the attribute patterns removed by
// DefaultPolicy: every event handler plus accesskey.
var DefaultAttributesToRemove = []string{"on*", "accesskey"}

// Policy is an immutable removal policy. The zero value removes nothing
// and discards the children of removed elements; use DefaultPolicy or
// NewPolicy to build one.
//
// The With* methods return modified copies, so a Policy can be shared
// between goroutines and sanitisation passes freely.
type Policy struct {
	elements      map[string]bool
	attributes    []attributePattern
	keepInnerHTML bool
}

// NewPolicy builds a Policy from element names, attribute patterns and
// the keep-inner-HTML flag. Empty or nil slices disable that category of
// removal.
func NewPolicy(elements, attributes []string, keepInnerHTML bool) *Policy {
	return &Policy{
		elements:      sliceToSet(elements),
		attributes:    compilePatterns(attributes),
		keepInnerHTML: keepInnerHTML,
	}
}

// DefaultPolicy removes scripting and embedding elements (keeping their
// inner HTML), event handler attributes and accesskey.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultElementsToRemove, DefaultAttributesToRemove, true)
}

// WithElementsToRemove returns a copy of p with a new element set.
func (p *Policy) WithElementsToRemove(elements []string) *Policy {
	c := p.clone()
	c.elements = sliceToSet(elements)
	return c
}

// WithAttributesToRemove returns a copy of p with new attribute patterns.
func (p *Policy) WithAttributesToRemove(patterns []string) *Policy {
	c := p.clone()
	c.attributes = compilePatterns(patterns)
	return c
}

// WithKeepInnerHTML returns a copy of p with the keep-inner-HTML flag set.
func (p *Policy) WithKeepInnerHTML(keep bool) *Policy {
	c := p.clone()
	c.keepInnerHTML = keep
	return c
}

// ElementsToRemove returns the element names in sorted order.
func (p *Policy) ElementsToRemove() []string {
	out := make([]string, 0, len(p.elements))
	for name := range p.elements {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AttributesToRemove returns the attribute patterns in configured order.
func (p *Policy) AttributesToRemove() []string {
	out := make([]string, 0, len(p.attributes))
	for _, a := range p.attributes {
		out = append(out, a.raw)
	}
	return out
}

// KeepInnerHTML reports whether removed elements keep their children.
func (p *Policy) KeepInnerHTML() bool {
	return p.keepInnerHTML
}

// RemovesElement reports whether tag is in the removal set.
func (p *Policy) RemovesElement(tag string) bool {
	return p.elements[strings.ToLower(tag)]
}

// RemovesAttribute reports whether name matches any removal pattern.
func (p *Policy) RemovesAttribute(name string) bool {
	name = strings.ToLower(name)
	for _, a := range p.attributes {
		if a.matches(name) {
			return true
		}
	}
	return false
}

func (p *Policy) clone() *Policy {
	c := &Policy{
		elements:      make(map[string]bool, len(p.elements)),
		attributes:    append([]attributePattern(nil), p.attributes...),
		keepInnerHTML: p.keepInnerHTML,
	}
	for k := range p.elements {
		c.elements[k] = true
	}
	return c
}
