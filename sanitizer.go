// Package xsssanitizer provides a deny-list HTML sanitizer that removes
// script-capable markup from a parsed document tree.
//
// Basic usage:
//
//	clean, err := xsssanitizer.Sanitize(input)
package xsssanitizer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Report counts what a single sanitisation pass removed.
type Report struct {
	// ElementsRemoved counts elements dropped together with their subtree.
	ElementsRemoved int
	// ElementsUnwrapped counts elements whose children were promoted.
	ElementsUnwrapped int
	// AttributesRemoved counts attributes matching a removal pattern.
	AttributesRemoved int
	// UnsafeURIs counts URI attributes dropped for a script scheme.
	UnsafeURIs int
	// UnsafeRefreshes counts meta refresh elements pointing at a script URI.
	UnsafeRefreshes int
}

// Changed reports whether the pass altered anything.
func (r Report) Changed() bool {
	return r != Report{}
}

// Add accumulates o into r.
func (r *Report) Add(o Report) {
	r.ElementsRemoved += o.ElementsRemoved
	r.ElementsUnwrapped += o.ElementsUnwrapped
	r.AttributesRemoved += o.AttributesRemoved
	r.UnsafeURIs += o.UnsafeURIs
	r.UnsafeRefreshes += o.UnsafeRefreshes
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithPolicy sets the initial policy. A nil policy is ignored.
func WithPolicy(p *Policy) Option {
	return func(s *Sanitizer) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithLogger attaches a logger; removals are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sanitizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sanitizer applies a Policy to HTML. Its setters swap the policy
// atomically; a pass that has already started keeps the policy it began
// with. A Sanitizer is safe for concurrent use as long as each pass works
// on its own tree.
type Sanitizer struct {
	mu     sync.RWMutex
	policy *Policy
	logger *zap.Logger
}

// New returns a Sanitizer using DefaultPolicy unless overridden.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		policy: DefaultPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSanitizer = New()

// Sanitize sanitises an HTML fragment with DefaultPolicy.
func Sanitize(input string) (string, error) {
	return defaultSanitizer.SanitizeString(input)
}

// Policy returns the current policy.
func (s *Sanitizer) Policy() *Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy replaces the whole policy. A nil policy is ignored.
func (s *Sanitizer) SetPolicy(p *Policy) *Sanitizer {
	if p == nil {
		return s
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	return s
}

// SetElementsToRemove replaces the element removal set. An empty slice
// keeps every element.
func (s *Sanitizer) SetElementsToRemove(elements []string) *Sanitizer {
	s.mu.Lock()
	s.policy = s.policy.WithElementsToRemove(elements)
	s.mu.Unlock()
	return s
}

// SetAttributesToRemove replaces the attribute removal patterns. Patterns
// may be exact names, "prefix*", "*suffix" or "*". An empty slice keeps
// every attribute, though script URIs are still dropped.
func (s *Sanitizer) SetAttributesToRemove(patterns []string) *Sanitizer {
	s.mu.Lock()
	s.policy = s.policy.WithAttributesToRemove(patterns)
	s.mu.Unlock()
	return s
}

// SetKeepInnerHTMLOnRemove controls whether removed elements leave their
// children behind.
func (s *Sanitizer) SetKeepInnerHTMLOnRemove(keep bool) *Sanitizer {
	s.mu.Lock()
	s.policy = s.policy.WithKeepInnerHTML(keep)
	s.mu.Unlock()
	return s
}

// SanitizeString parses input as a body fragment, sanitises it and
// returns the rendered result.
func (s *Sanitizer) SanitizeString(input string) (string, error) {
	out, _, err := s.SanitizeStringReport(input)
	return out, err
}

// SanitizeStringReport is SanitizeString that also returns the pass report.
func (s *Sanitizer) SanitizeStringReport(input string) (string, Report, error) {
	return s.sanitizeFragment(strings.NewReader(input))
}

// SanitizeReader reads an HTML fragment from r and returns it sanitised.
func (s *Sanitizer) SanitizeReader(r io.Reader) (string, error) {
	out, _, err := s.sanitizeFragment(r)
	return out, err
}

// SanitizePage parses r as a complete document (doctype, head and body
// included), sanitises it and renders the whole document.
func (s *Sanitizer) SanitizePage(r io.Reader) (string, Report, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", Report{}, fmt.Errorf("parse document: %w", err)
	}
	report := s.SanitizeDocument(doc)

	var sb strings.Builder
	if err := Render(&sb, doc); err != nil {
		return "", report, fmt.Errorf("render document: %w", err)
	}
	return sb.String(), report, nil
}

// SanitizeDocument sanitises the tree below root in place. root itself is
// never removed, even when its tag is in the removal set (for example when
// called on a <script> element); only its attributes are filtered. Use
// SanitizeNode to sanitise a node that may itself have to go.
func (s *Sanitizer) SanitizeDocument(root *html.Node) Report {
	p := s.newPass()
	p.children(root)
	if root.Type == html.ElementNode && !p.attributes(root) {
		// root cannot be detached from here; drop what made it unsafe.
		root.Attr = nil
		p.report.UnsafeRefreshes++
	}
	p.done()
	return p.report
}

// SanitizeNode sanitises n and its subtree and returns the nodes that
// replace it: n itself, its promoted children, or nothing. When n has a
// parent, the replacement is spliced into the parent at n's position.
func (s *Sanitizer) SanitizeNode(n *html.Node) []*html.Node {
	p := s.newPass()
	parent, next := n.Parent, n.NextSibling
	if parent != nil {
		parent.RemoveChild(n)
	}
	out := p.node(n)
	if parent != nil {
		for _, c := range out {
			parent.InsertBefore(c, next)
		}
	}
	p.done()
	return out
}

func (s *Sanitizer) sanitizeFragment(r io.Reader) (string, Report, error) {
	p := s.newPass()
	out, err := p.fragment(r)
	p.done()
	return out, p.report, err
}

func (s *Sanitizer) newPass() *pass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &pass{policy: s.policy, logger: s.logger}
}

// pass is one application of a policy snapshot to a tree.
type pass struct {
	policy *Policy
	logger *zap.Logger
	report Report
}

func (p *pass) fragment(r io.Reader) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, context)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	p.children(root)

	var sb strings.Builder
	if err := Render(&sb, root); err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return sb.String(), nil
}

// children rebuilds parent's child list from the sanitised results of its
// former children.
func (p *pass) children(parent *html.Node) {
	var kept []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		kept = append(kept, p.node(c)...)
		c = next
	}
	for _, c := range kept {
		parent.AppendChild(c)
	}
}

// node returns the replacement for a detached node.
func (p *pass) node(n *html.Node) []*html.Node {
	if n.Type != html.ElementNode {
		p.children(n)
		return []*html.Node{n}
	}

	if p.policy.RemovesElement(n.Data) {
		if !p.policy.keepInnerHTML {
			p.report.ElementsRemoved++
			p.logger.Debug("removed element", zap.String("element", n.Data))
			return nil
		}
		p.children(n)
		p.report.ElementsUnwrapped++
		p.logger.Debug("unwrapped element", zap.String("element", n.Data))
		return detachChildren(n)
	}

	if !p.attributes(n) {
		p.report.UnsafeRefreshes++
		p.logger.Debug("removed unsafe refresh", zap.String("element", n.Data))
		return nil
	}
	p.children(n)
	return []*html.Node{n}
}

// attributes filters n.Attr in place. It returns false when the element
// as a whole has to go.
func (p *pass) attributes(n *html.Node) bool {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		name := strings.ToLower(attributeName(a))
		key := strings.ToLower(a.Key)
		switch {
		case p.policy.RemovesAttribute(name):
			p.report.AttributesRemoved++
			p.logger.Debug("removed attribute",
				zap.String("element", n.Data), zap.String("attribute", name))
		case uriAttributes[key] && IsScriptURI(a.Val):
			p.report.UnsafeURIs++
			p.logger.Debug("removed script uri",
				zap.String("element", n.Data), zap.String("attribute", name))
		default:
			if key == "srcdoc" {
				a.Val = p.srcdoc(a.Val)
			}
			kept = append(kept, a)
		}
	}
	n.Attr = kept

	if n.Data == "meta" && strings.EqualFold(getAttr(n, "http-equiv"), "refresh") {
		return !IsScriptURI(refreshTarget(getAttr(n, "content")))
	}
	return true
}

// srcdoc sanitises an inline document held in an attribute value.
func (p *pass) srcdoc(v string) string {
	out, err := p.fragment(strings.NewReader(v))
	if err != nil {
		return ""
	}
	return out
}

func (p *pass) done() {
	if p.report.Changed() {
		p.logger.Debug("sanitised",
			zap.Int("elements_removed", p.report.ElementsRemoved),
			zap.Int("elements_unwrapped", p.report.ElementsUnwrapped),
			zap.Int("attributes_removed", p.report.AttributesRemoved),
			zap.Int("unsafe_uris", p.report.UnsafeURIs),
			zap.Int("unsafe_refreshes", p.report.UnsafeRefreshes))
	}
}

// --- helpers ---------------------------------------------------------

func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func sliceToSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			m[v] = true
		}
	}
	return m
}
