package xsssanitizer

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Render writes nodes as HTML. Text is escaped for &, < and > only;
// attribute values are fully escaped and always quoted; void elements
// have no end tag.
//
// Every element is written the way a parser reading the output back will
// see it. Raw text is only written verbatim when its element is still
// parsed as HTML at that position, which is not the case once unwrapping
// has moved it under SVG or MathML content.
func Render(w io.Writer, nodes ...*html.Node) error {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	r := &renderer{w: bw}
	for _, n := range nodes {
		r.render(n, reparsedNamespace(n.Parent))
	}
	return bw.Flush()
}

type renderer struct {
	w *bufio.Writer
	// done is set after <plaintext>, which consumes the rest of the input.
	done bool
}

// render writes n. ns is the namespace n's parent is parsed into on
// reparse, "" for HTML.
func (r *renderer) render(n *html.Node, ns string) {
	if r.done {
		return
	}
	w := r.w
	switch n.Type {
	case html.TextNode:
		if p := n.Parent; p != nil && p.Type == html.ElementNode &&
			p.Namespace == "" && ns == "" && isRawText(p.Data) {
			w.WriteString(n.Data)
			return
		}
		textEscaper.WriteString(w, n.Data)

	case html.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")

	case html.DoctypeNode:
		r.doctype(n)

	case html.ElementNode:
		own := childNamespace(n.Parent, ns, n)
		name := n.Data
		if own != "svg" || n.Namespace != "svg" {
			name = strings.ToLower(name)
		}

		w.WriteByte('<')
		w.WriteString(name)
		for _, a := range n.Attr {
			key := attributeName(a)
			if own == "" {
				key = strings.ToLower(key)
			}
			w.WriteByte(' ')
			w.WriteString(key)
			w.WriteString(`="`)
			w.WriteString(html.EscapeString(a.Val))
			w.WriteByte('"')
		}
		w.WriteByte('>')

		if own == "" {
			switch name {
			case "pre", "listing", "textarea":
				// The parser drops one leading newline here.
				if c := n.FirstChild; c != nil && c.Type == html.TextNode && strings.HasPrefix(c.Data, "\n") {
					w.WriteByte('\n')
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.render(c, own)
		}
		if own == "" && name == "plaintext" {
			r.done = true
		}
		if r.done || own == "" && isVoidElement(name) {
			return
		}
		w.WriteString("</")
		w.WriteString(name)
		w.WriteByte('>')

	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.render(c, ns)
		}
	}
}

func (r *renderer) doctype(n *html.Node) {
	w := r.w
	w.WriteString("<!DOCTYPE ")
	w.WriteString(html.EscapeString(n.Data))
	var public, system string
	for _, a := range n.Attr {
		switch a.Key {
		case "public":
			public = a.Val
		case "system":
			system = a.Val
		}
	}
	switch {
	case public != "":
		w.WriteString(" PUBLIC ")
		writeQuoted(w, public)
		if system != "" {
			w.WriteByte(' ')
			writeQuoted(w, system)
		}
	case system != "":
		w.WriteString(" SYSTEM ")
		writeQuoted(w, system)
	}
	w.WriteByte('>')
}

// writeQuoted writes s in double quotes, or single quotes if s contains a
// double quote.
func writeQuoted(w *bufio.Writer, s string) {
	q := byte('"')
	if strings.Contains(s, `"`) {
		q = '\''
	}
	w.WriteByte(q)
	w.WriteString(s)
	w.WriteByte(q)
}

// reparsedNamespace returns the namespace n is parsed into when the tree
// above it is written out and read back, "" for HTML or when n is not an
// element.
func reparsedNamespace(n *html.Node) string {
	var chain []*html.Node
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		chain = append(chain, n)
	}
	var (
		parent *html.Node
		ns     string
	)
	for i := len(chain) - 1; i >= 0; i-- {
		ns, parent = childNamespace(parent, ns, chain[i]), chain[i]
	}
	return ns
}

// childNamespace returns the namespace a start tag for child is parsed
// into when written inside parent, whose own reparsed namespace is ns.
// Tags such as <b> or <p> that break out of foreign content in a document
// parse stay foreign here, as they do in fragment parsing, so raw text
// below them is escaped.
func childNamespace(parent *html.Node, ns string, child *html.Node) string {
	name := strings.ToLower(child.Data)
	if parent == nil || parent.Type != html.ElementNode || ns == "" ||
		htmlIntegrationPoint(parent, ns) ||
		(mathMLTextIntegrationPoint(parent, ns) && name != "mglyph" && name != "malignmark") {
		switch name {
		case "svg", "math":
			return name
		}
		return ""
	}
	if ns == "math" && strings.EqualFold(parent.Data, "annotation-xml") && name == "svg" {
		return "svg"
	}
	return ns
}

func htmlIntegrationPoint(n *html.Node, ns string) bool {
	switch ns {
	case "math":
		if !strings.EqualFold(n.Data, "annotation-xml") {
			return false
		}
		for _, a := range n.Attr {
			if strings.EqualFold(a.Key, "encoding") {
				switch strings.ToLower(a.Val) {
				case "text/html", "application/xhtml+xml":
					return true
				}
			}
		}
	case "svg":
		switch strings.ToLower(n.Data) {
		case "desc", "foreignobject", "title":
			return true
		}
	}
	return false
}

func mathMLTextIntegrationPoint(n *html.Node, ns string) bool {
	if ns != "math" {
		return false
	}
	switch strings.ToLower(n.Data) {
	case "mi", "mo", "mn", "ms", "mtext":
		return true
	}
	return false
}

// attributeName is the qualified name, e.g. "xlink:href".
func attributeName(a html.Attribute) string {
	if a.Namespace == "" {
		return a.Key
	}
	return a.Namespace + ":" + a.Key
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"keygen", "link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// isRawText reports elements whose text content is not entity-decoded by
// the parser and so must not be escaped on output.
func isRawText(tag string) bool {
	switch tag {
	case "iframe", "noembed", "noframes", "noscript", "plaintext",
		"script", "style", "xmp":
		return true
	}
	return false
}
