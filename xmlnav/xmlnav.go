// Package xmlnav provides forgiving, namespace-agnostic navigation over XML
// documents returned by the MaIS Person API.
//
// Parsing never fails: broken input yields whatever partial tree the parser
// recovered, and lookups on missing nodes return absent values instead of
// errors. Namespace prefixes and xmlns declarations are removed once, at parse
// time, so callers look elements and attributes up by local name only.
//
// Paths use etree path syntax:
//
//	//affiliation                      every affiliation element in the document
//	department                         direct children named department
//	.//organization                    descendants named organization
//	//affiliation[@affnum='1']         filtered by attribute value
package xmlnav

import (
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed XML tree. The zero value behaves like an empty document.
type Document struct {
	root Node
	err  error
}

// Parse builds a Document from raw XML text. A parse error is kept on the
// document (see Err) but never returned; the recovered tree stays usable.
func Parse(raw string) *Document {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true

	err := doc.ReadFromString(raw)
	if err != nil {
		slog.Debug("XML parse incomplete, using recovered tree", "error", err, "bytes", len(raw))
	}

	root := doc.Root()
	if root != nil {
		stripNamespaces(root)
	}

	return &Document{root: Node{el: root}, err: err}
}

// Root returns the document element, or a missing Node if nothing was parsed.
func (d *Document) Root() Node {
	if d == nil {
		return Node{}
	}
	return d.root
}

// Err returns the error the parser stopped on, if any.
func (d *Document) Err() error {
	if d == nil {
		return nil
	}
	return d.err
}

// stripNamespaces clears namespace prefixes from el and its descendants and
// drops xmlns declarations.
func stripNamespaces(el *etree.Element) {
	el.Space = ""

	attrs := el.Attr[:0]
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		a.Space = ""
		attrs = append(attrs, a)
	}
	el.Attr = attrs

	for _, child := range el.ChildElements() {
		stripNamespaces(child)
	}
}

// Node is a located element. The zero value is a missing node: every lookup
// on it returns an absent result.
type Node struct {
	el *etree.Element
}

// Exists reports whether the node was found in the document.
func (n Node) Exists() bool {
	return n.el != nil
}

// Name returns the element's local name, or "" for a missing node.
func (n Node) Name() string {
	if n.el == nil {
		return ""
	}
	return n.el.Tag
}

// Attr returns the value of the named attribute, or nil when the node or the
// attribute is missing. A present but empty attribute yields a pointer to "".
func (n Node) Attr(name string) *string {
	if n.el == nil {
		return nil
	}
	a := n.el.SelectAttr(name)
	if a == nil {
		return nil
	}
	v := a.Value
	return &v
}

// AttrValue is Attr with absence mapped to "".
func (n Node) AttrValue(name string) string {
	if v := n.Attr(name); v != nil {
		return *v
	}
	return ""
}

// All returns every element matching path, in document order.
func (n Node) All(path string) []Node {
	if n.el == nil {
		return nil
	}
	p, err := etree.CompilePath(path)
	if err != nil {
		slog.Debug("Invalid XML path", "path", path, "error", err)
		return nil
	}
	found := n.el.FindElementsPath(p)
	nodes := make([]Node, 0, len(found))
	for _, el := range found {
		nodes = append(nodes, Node{el: el})
	}
	return nodes
}

// First returns the first element matching path, or a missing Node.
func (n Node) First(path string) Node {
	if n.el == nil {
		return Node{}
	}
	p, err := etree.CompilePath(path)
	if err != nil {
		slog.Debug("Invalid XML path", "path", path, "error", err)
		return Node{}
	}
	return Node{el: n.el.FindElementPath(p)}
}

// Texts returns the normalized text of every element matching path.
func (n Node) Texts(path string) []string {
	nodes := n.All(path)
	texts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		texts = append(texts, Normalize(node.rawText()))
	}
	return texts
}

// Text returns the node's full text content with whitespace runs collapsed to
// single spaces and the ends trimmed. It is nil only when the node is missing.
func (n Node) Text() *string {
	if n.el == nil {
		return nil
	}
	v := Normalize(n.rawText())
	return &v
}

// RawText returns the node's full text content exactly as it appears in the
// document, or nil when the node is missing.
func (n Node) RawText() *string {
	if n.el == nil {
		return nil
	}
	v := n.rawText()
	return &v
}

// OwnText returns the node's leading text, trimmed. Comments and processing
// instructions are skipped. When the node opens with an element, the
// element's full text is used instead. It is nil when the node is missing,
// empty, or opens with whitespace only.
func (n Node) OwnText() *string {
	if n.el == nil {
		return nil
	}

	var b strings.Builder
	sawText := false
loop:
	for _, tok := range n.el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
			sawText = true
		case *etree.Element:
			if !sawText {
				collectText(t, &b)
			}
			break loop
		}
	}

	v := strings.TrimSpace(b.String())
	if v == "" {
		return nil
	}
	return &v
}

func (n Node) rawText() string {
	var b strings.Builder
	collectText(n.el, &b)
	return b.String()
}

func collectText(el *etree.Element, b *strings.Builder) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			collectText(t, b)
		}
	}
}

// Normalize collapses runs of whitespace into single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
