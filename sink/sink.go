// Package sink defines the tree sink contract: the set of node-construction
// operations the parsing engine drives while building a document. The engine
// does not own a DOM; it holds opaque Node handles and calls through this
// interface in strict document order. The dom package provides the default
// implementation.
package sink

// Node is an opaque handle to a sink-owned node. The engine never inspects
// it; it only passes handles back into Sink methods. A sink may use any
// comparable value as a handle, including non-pointer sentinels for the
// document root.
type Node any

// QuirksMode is the document compatibility mode selected from the DOCTYPE
// token, reported to the sink once before the first element is inserted.
type QuirksMode int

// Quirks modes.
const (
	NoQuirks QuirksMode = iota
	Quirks
	LimitedQuirks
)

// Attribute is one attribute of an element tag. Namespace is empty for
// plain HTML attributes; the foreign-content adjustment tables set it for
// xlink/xml/xmlns attributes on MathML and SVG elements.
type Attribute struct {
	Namespace string
	Name      string
	Value     string
}

// Tag carries everything the sink needs to materialise an element: the
// (already lowercased, for HTML) tag name, its namespace, and its
// deduplicated attribute list in source order.
type Tag struct {
	Name        string
	Namespace   string
	Attributes  []Attribute
	SelfClosing bool
}

// Doctype carries a DOCTYPE token's fields. The missing flags distinguish
// an absent identifier from an empty one; both matter for quirks-mode
// selection.
type Doctype struct {
	Name            string
	PublicID        string
	SystemID        string
	MissingName     bool
	MissingPublicID bool
	MissingSystemID bool
	ForceQuirks     bool
}

// Sink is implemented by the client's tree. Creation methods return the new
// node's handle. AppendChild and InsertBefore return the node that ended up
// in the tree, which may differ from the child argument when the sink
// coalesces adjacent text nodes; the engine must use the returned handle
// for any subsequent reference to that content.
//
// RefNode/UnrefNode form the acquire/release protocol for handles the
// engine retains in its open-element stack and active formatting list;
// every acquire is balanced by a release before the handle is dropped.
type Sink interface {
	// CreateComment creates a detached comment node.
	CreateComment(data string) (Node, error)

	// CreateDoctype creates a detached DOCTYPE node.
	CreateDoctype(dt Doctype) (Node, error)

	// CreateElement creates a detached element from a tag.
	CreateElement(tag Tag) (Node, error)

	// CreateText creates a detached text node.
	CreateText(data string) (Node, error)

	// RefNode acquires a reference on a node handle.
	RefNode(n Node)

	// UnrefNode releases a reference previously acquired with RefNode.
	UnrefNode(n Node)

	// AppendChild appends child under parent and returns the node now
	// holding the content (the child itself, or the preceding text node
	// the child's data was merged into).
	AppendChild(parent, child Node) (Node, error)

	// InsertBefore inserts child under parent immediately before ref,
	// with the same merge semantics as AppendChild. A nil ref appends.
	InsertBefore(parent, child, ref Node) (Node, error)

	// RemoveChild detaches child from parent.
	RemoveChild(parent, child Node) error

	// CloneNode copies a node, and its subtree when deep is set.
	CloneNode(n Node, deep bool) (Node, error)

	// ReparentChildren moves every child of src to the end of dst's
	// child list, preserving order.
	ReparentChildren(src, dst Node) error

	// GetParent returns the parent of n, or nil for a detached node.
	// With elementOnly set, a non-element parent reads as nil.
	GetParent(n Node, elementOnly bool) Node

	// HasChildren reports whether n has any children.
	HasChildren(n Node) bool

	// FormAssociate records form as the form owner of n, per the form
	// element pointer steps of tree construction.
	FormAssociate(form, n Node) error

	// AddAttributes adds each attribute to n unless an attribute with the
	// same (namespace, name) is already present. Used when a stray <html>
	// or <body> tag contributes attributes to the existing element.
	AddAttributes(n Node, attrs []Attribute) error

	// SetQuirksMode reports the document compatibility mode.
	SetQuirksMode(mode QuirksMode)

	// ChangeEncoding notifies the sink that a <meta> tag demanded a
	// different encoding. The sink returns nil to permit the restart.
	ChangeEncoding(label string) error

	// TemplateContent returns the content fragment of a template element,
	// creating it on first use. Tree construction inserts a template's
	// children under this fragment rather than under the element itself.
	TemplateContent(template Node) Node
}
