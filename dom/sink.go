package dom

import (
	"errors"

	"github.com/htmlcore/parser/sink"
)

// Sink adapts the reference DOM to the sink.Sink contract. Handles passed
// through sink.Node are the dom.Node values themselves; no side table is
// kept. Text coalescing happens here, so no two adjacent children of any
// parent are both text nodes.
type Sink struct {
	// Document is the root the sink builds under.
	Document *Document

	// EncodingLabel records the last label passed to ChangeEncoding. The
	// reference sink never vetoes a restart; it only remembers the ask.
	EncodingLabel string
}

// NewSink returns a Sink building under doc.
func NewSink(doc *Document) *Sink {
	return &Sink{Document: doc}
}

var (
	errNotANode     = errors.New("dom: handle is not a dom.Node")
	errNotAnElement = errors.New("dom: handle is not a *dom.Element")
)

func asNode(h sink.Node) (Node, error) {
	if h == nil {
		return nil, errNotANode
	}
	n, ok := h.(Node)
	if !ok {
		return nil, errNotANode
	}
	return n, nil
}

func asElement(h sink.Node) (*Element, error) {
	e, ok := h.(*Element)
	if !ok {
		return nil, errNotAnElement
	}
	return e, nil
}

// CreateComment implements sink.Sink.
func (s *Sink) CreateComment(data string) (sink.Node, error) {
	return NewComment(data), nil
}

// CreateDoctype implements sink.Sink.
func (s *Sink) CreateDoctype(dt sink.Doctype) (sink.Node, error) {
	return NewDocumentType(dt.Name, dt.PublicID, dt.SystemID), nil
}

// CreateElement implements sink.Sink.
func (s *Sink) CreateElement(tag sink.Tag) (sink.Node, error) {
	var e *Element
	if tag.Namespace == "" || tag.Namespace == NamespaceHTML {
		e = NewElement(tag.Name)
	} else {
		e = NewElementNS(tag.Name, tag.Namespace)
	}
	for _, a := range tag.Attributes {
		if a.Namespace == "" && e.Namespace == NamespaceHTML {
			e.Attributes.Set(a.Name, a.Value)
		} else {
			e.Attributes.SetNS(a.Namespace, a.Name, a.Value)
		}
	}
	return e, nil
}

// CreateText implements sink.Sink.
func (s *Sink) CreateText(data string) (sink.Node, error) {
	return NewText(data), nil
}

// RefNode implements sink.Sink. Only elements are ever retained by the
// engine's stack or formatting list, so only elements carry a refcount.
func (s *Sink) RefNode(h sink.Node) {
	if e, ok := h.(*Element); ok {
		e.Ref()
	}
}

// UnrefNode implements sink.Sink.
func (s *Sink) UnrefNode(h sink.Node) {
	if e, ok := h.(*Element); ok {
		e.Unref()
	}
}

// AppendChild implements sink.Sink. A text child whose new previous
// sibling is also a text node is merged into that sibling, and the
// sibling is returned as the surviving node.
func (s *Sink) AppendChild(parent, child sink.Node) (sink.Node, error) {
	p, err := asNode(parent)
	if err != nil {
		return nil, err
	}
	c, err := asNode(child)
	if err != nil {
		return nil, err
	}
	if t, ok := c.(*Text); ok {
		kids := p.Children()
		if len(kids) > 0 {
			if prev, ok := kids[len(kids)-1].(*Text); ok {
				prev.Data += t.Data
				return prev, nil
			}
		}
	}
	if dt, ok := c.(*DocumentType); ok {
		if doc, ok := p.(*Document); ok {
			doc.Doctype = dt
		}
	}
	p.AppendChild(c)
	return c, nil
}

// InsertBefore implements sink.Sink. A text child merges into the text
// node immediately preceding the reference child, or prepends into the
// reference child itself when that is a text node.
func (s *Sink) InsertBefore(parent, child, ref sink.Node) (sink.Node, error) {
	if ref == nil {
		return s.AppendChild(parent, child)
	}
	p, err := asNode(parent)
	if err != nil {
		return nil, err
	}
	c, err := asNode(child)
	if err != nil {
		return nil, err
	}
	r, err := asNode(ref)
	if err != nil {
		return nil, err
	}
	if t, ok := c.(*Text); ok {
		kids := p.Children()
		for i, k := range kids {
			if k != r {
				continue
			}
			if i > 0 {
				if prev, ok := kids[i-1].(*Text); ok {
					prev.Data += t.Data
					return prev, nil
				}
			}
			break
		}
		if refText, ok := r.(*Text); ok {
			refText.Data = t.Data + refText.Data
			return refText, nil
		}
	}
	p.InsertBefore(c, r)
	return c, nil
}

// RemoveChild implements sink.Sink.
func (s *Sink) RemoveChild(parent, child sink.Node) error {
	p, err := asNode(parent)
	if err != nil {
		return err
	}
	c, err := asNode(child)
	if err != nil {
		return err
	}
	p.RemoveChild(c)
	return nil
}

// CloneNode implements sink.Sink.
func (s *Sink) CloneNode(h sink.Node, deep bool) (sink.Node, error) {
	n, err := asNode(h)
	if err != nil {
		return nil, err
	}
	return n.Clone(deep), nil
}

// ReparentChildren implements sink.Sink.
func (s *Sink) ReparentChildren(src, dst sink.Node) error {
	from, err := asNode(src)
	if err != nil {
		return err
	}
	to, err := asNode(dst)
	if err != nil {
		return err
	}
	// Children() aliases the parent's slice; copy before mutating.
	kids := append([]Node(nil), from.Children()...)
	for _, k := range kids {
		from.RemoveChild(k)
		to.AppendChild(k)
	}
	return nil
}

// GetParent implements sink.Sink.
func (s *Sink) GetParent(h sink.Node, elementOnly bool) sink.Node {
	n, err := asNode(h)
	if err != nil {
		return nil
	}
	p := n.Parent()
	if p == nil {
		return nil
	}
	if elementOnly {
		if _, ok := p.(*Element); !ok {
			return nil
		}
	}
	return p
}

// HasChildren implements sink.Sink.
func (s *Sink) HasChildren(h sink.Node) bool {
	n, err := asNode(h)
	if err != nil {
		return false
	}
	return n.HasChildNodes()
}

// FormAssociate implements sink.Sink.
func (s *Sink) FormAssociate(form, h sink.Node) error {
	f, err := asElement(form)
	if err != nil {
		return err
	}
	e, err := asElement(h)
	if err != nil {
		return err
	}
	e.AssociatedForm = f
	return nil
}

// AddAttributes implements sink.Sink. Attributes already present on the
// element (by namespace and name) are left untouched.
func (s *Sink) AddAttributes(h sink.Node, attrs []sink.Attribute) error {
	e, err := asElement(h)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		if e.Attributes.HasNS(a.Namespace, a.Name) {
			continue
		}
		if a.Namespace == "" && e.Attributes.Has(a.Name) {
			continue
		}
		e.Attributes.SetNS(a.Namespace, a.Name, a.Value)
	}
	return nil
}

// SetQuirksMode implements sink.Sink.
func (s *Sink) SetQuirksMode(mode sink.QuirksMode) {
	switch mode {
	case sink.Quirks:
		s.Document.QuirksMode = Quirks
	case sink.LimitedQuirks:
		s.Document.QuirksMode = LimitedQuirks
	default:
		s.Document.QuirksMode = NoQuirks
	}
}

// ChangeEncoding implements sink.Sink.
func (s *Sink) ChangeEncoding(label string) error {
	s.EncodingLabel = label
	return nil
}

// TemplateContent implements sink.Sink. The content fragment is created
// once and reused on subsequent calls for the same element.
func (s *Sink) TemplateContent(template sink.Node) sink.Node {
	e, err := asElement(template)
	if err != nil {
		return nil
	}
	if e.TemplateContent == nil {
		e.TemplateContent = NewDocumentFragment()
	}
	return e.TemplateContent
}

var _ sink.Sink = (*Sink)(nil)
