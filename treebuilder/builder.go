package treebuilder

import (
	"strings"

	"github.com/htmlcore/parser/dom"
	"github.com/htmlcore/parser/internal/constants"
	"github.com/htmlcore/parser/sink"
	"github.com/htmlcore/parser/tokenizer"
)

// TreeBuilder implements a (work-in-progress) HTML5 tree construction stage.
//
// This is a direct porting target of the Python reference implementation and is
// intended to be driven by the tokenizer token stream.
type TreeBuilder struct {
	document *dom.Document

	// sink receives every node-construction call. The reference dom.Sink
	// is wired by default; creation, append/insert, ref/unref, quirks
	// mode, and form association all go through it.
	sink sink.Sink

	openElements []*dom.Element

	mode         InsertionMode
	originalMode InsertionMode

	headElement *dom.Element

	activeFormatting []formattingEntry

	// Template insertion modes stack.
	templateModes []InsertionMode

	// Table parsing support.
	pendingTableText      []string
	tableTextOriginalMode *InsertionMode
	framesetOK            bool
	fosterParenting       bool

	fragmentContext *FragmentContext
	fragmentRoot    *dom.Element
	fragmentElement *dom.Element

	tokenizer *tokenizer.Tokenizer

	// forceHTMLMode is set by processForeignContent when it encounters a token
	// that should be reprocessed using normal HTML insertion mode rules rather
	// than foreign content rules. This prevents infinite loops when foreign
	// content contains tokens that trigger breakout to HTML mode.
	forceHTMLMode bool

	iframeSrcdoc bool

	// scriptingEnabled is the WHATWG scripting flag. It only affects how
	// <noscript> parses; this library never executes scripts.
	scriptingEnabled bool

	// formElement is the form element pointer (WHATWG §13.2.4.3): the
	// most recently opened form, associated with form-owned elements as
	// they are inserted.
	formElement *dom.Element

	// pendingCharset holds a charset label extracted from a <meta> tag
	// encountered during tree construction, awaiting pickup by the engine
	// (WHATWG §13.2.6.4.7 "meta" element charset/http-equiv handling).
	pendingCharset string
}

// New creates a new tree builder for full document parsing.
func New(tok *tokenizer.Tokenizer) *TreeBuilder {
	doc := dom.NewDocument()
	return &TreeBuilder{
		document:         doc,
		sink:             dom.NewSink(doc),
		mode:             Initial,
		originalMode:     Initial,
		openElements:     nil,
		activeFormatting: nil,
		templateModes:    nil,
		pendingTableText: nil,
		framesetOK:       true,
		fragmentRoot:     nil,
		fragmentContext:  nil,
		tokenizer:        tok,
	}
}

// NewFragment creates a new tree builder for fragment parsing.
func NewFragment(tok *tokenizer.Tokenizer, ctx *FragmentContext) *TreeBuilder {
	doc := dom.NewDocument()
	tb := &TreeBuilder{
		document:         doc,
		sink:             dom.NewSink(doc),
		mode:             Initial,
		originalMode:     Initial,
		openElements:     nil,
		activeFormatting: nil,
		templateModes:    nil,
		pendingTableText: nil,
		framesetOK:       false,
		fragmentContext:  ctx,
		tokenizer:        tok,
	}

	// Minimal fragment setup: create an <html> root and a context element.
	html := tb.createElement("html", nil)
	tb.sink.AppendChild(tb.document, html)
	tb.pushOpenElement(html)
	tb.fragmentRoot = html

	if ctx != nil && ctx.TagName != "" {
		tag := sink.Tag{Name: ctx.TagName}
		switch ctx.Namespace {
		case "svg":
			tag.Namespace = dom.NamespaceSVG
		case "mathml":
			tag.Namespace = dom.NamespaceMathML
		}
		n, _ := tb.sink.CreateElement(tag)
		contextEl := n.(*dom.Element)
		tb.sink.AppendChild(html, contextEl)
		tb.pushOpenElement(contextEl)
		tb.fragmentElement = contextEl

		// Set the initial insertion mode based on the context element, per HTML5 fragment parsing.
		tagName := contextEl.TagName
		if ctx.Namespace != "" && ctx.Namespace != "html" {
			tb.mode = InBody
		} else {
			switch tagName {
			case "html":
				tb.mode = BeforeHead
			case "tbody", "thead", "tfoot":
				tb.mode = InTableBody
			case "tr":
				tb.mode = InRow
			case "td", "th":
				tb.mode = InCell
			case "caption":
				tb.mode = InCaption
			case "colgroup":
				tb.mode = InColumnGroup
			case "table":
				tb.mode = InTable
			case "select":
				tb.mode = InSelect
			default:
				tb.mode = InBody
			}
		}
		tb.originalMode = tb.mode

		// Adjust tokenizer state based on the fragment context element, per HTML5 fragment parsing.
		// This is necessary because the fragment setup does not emit the context start tag token.
		if ctx.Namespace == "" || ctx.Namespace == "html" {
			switch tagName {
			case "title", "textarea":
				tb.tokenizer.SetLastStartTag(tagName)
				tb.tokenizer.SetState(tokenizer.RCDATAState)
			case "style", "xmp", "iframe", "noembed", "noframes":
				tb.tokenizer.SetLastStartTag(tagName)
				tb.tokenizer.SetState(tokenizer.RAWTEXTState)
			case "script":
				tb.tokenizer.SetLastStartTag(tagName)
				tb.tokenizer.SetState(tokenizer.ScriptDataState)
			case "plaintext":
				tb.tokenizer.SetLastStartTag(tagName)
				tb.tokenizer.SetState(tokenizer.PLAINTEXTState)
			}
		}
	}

	return tb
}

// SetIframeSrcdoc toggles iframe srcdoc parsing behavior (affects quirks mode decisions).
func (tb *TreeBuilder) SetIframeSrcdoc(enabled bool) {
	tb.iframeSrcdoc = enabled
}

// SetScriptingEnabled sets the scripting flag (WHATWG §13.2.4). With
// scripting enabled, <noscript> is parsed as raw text instead of having
// its contents tree-constructed.
func (tb *TreeBuilder) SetScriptingEnabled(enabled bool) {
	tb.scriptingEnabled = enabled
}

// Document returns the constructed document.
func (tb *TreeBuilder) Document() *dom.Document {
	return tb.document
}

// FragmentNodes returns the fragment's top-level element children.
func (tb *TreeBuilder) FragmentNodes() []*dom.Element {
	root := tb.fragmentElement
	if root == nil {
		root = tb.fragmentRoot
	}
	if root == nil {
		return nil
	}
	var out []*dom.Element
	for _, child := range root.Children() {
		if el, ok := child.(*dom.Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// ProcessToken consumes a tokenizer token and updates the DOM tree.
func (tb *TreeBuilder) ProcessToken(tok tokenizer.Token) {
	// The full HTML5 algorithm is implemented incrementally; keep the current
	// behavior non-panicking and deterministic.
	for {
		// Check if we should use foreign content rules.
		// forceHTMLMode bypasses this check when reprocessing a token that
		// triggered breakout from foreign content.
		if !tb.forceHTMLMode && tb.shouldUseForeignContent(tok) {
			reprocess := tb.processForeignContent(tok)
			if !reprocess {
				return
			}
			continue
		}
		tb.forceHTMLMode = false
		var reprocess bool
		switch tb.mode {
		case Initial:
			reprocess = tb.processInitial(tok)
		case BeforeHTML:
			reprocess = tb.processBeforeHTML(tok)
		case BeforeHead:
			reprocess = tb.processBeforeHead(tok)
		case InHead:
			reprocess = tb.processInHead(tok)
		case InHeadNoscript:
			reprocess = tb.processInHeadNoscript(tok)
		case AfterHead:
			reprocess = tb.processAfterHead(tok)
		case Text:
			reprocess = tb.processText(tok)
		case InBody:
			reprocess = tb.processInBody(tok)
		case InTable:
			reprocess = tb.processInTable(tok)
		case InTableText:
			reprocess = tb.processInTableText(tok)
		case InCaption:
			reprocess = tb.processInCaption(tok)
		case InColumnGroup:
			reprocess = tb.processInColumnGroup(tok)
		case InTableBody:
			reprocess = tb.processInTableBody(tok)
		case InRow:
			reprocess = tb.processInRow(tok)
		case InCell:
			reprocess = tb.processInCell(tok)
		case InSelect:
			reprocess = tb.processInSelect(tok)
		case InSelectInTable:
			reprocess = tb.processInSelectInTable(tok)
		case InTemplate:
			reprocess = tb.processInTemplate(tok)
		case AfterBody:
			reprocess = tb.processAfterBody(tok)
		case InFrameset:
			reprocess = tb.processInFrameset(tok)
		case AfterFrameset:
			reprocess = tb.processAfterFrameset(tok)
		case AfterAfterBody:
			reprocess = tb.processAfterAfterBody(tok)
		case AfterAfterFrameset:
			reprocess = tb.processAfterAfterFrameset(tok)
		default:
			// Fallback: treat as InBody for now.
			reprocess = tb.processInBody(tok)
		}
		if !reprocess {
			return
		}
	}
}

func (tb *TreeBuilder) currentNode() dom.Node {
	if len(tb.openElements) == 0 {
		return tb.document
	}
	return tb.openElements[len(tb.openElements)-1]
}

func (tb *TreeBuilder) currentElement() *dom.Element {
	if len(tb.openElements) == 0 {
		return nil
	}
	return tb.openElements[len(tb.openElements)-1]
}

// AllowCDATA reports whether the tokenizer should treat a `<![CDATA[`
// construct as a CDATA section rather than a bogus comment, per WHATWG
// §13.2.5.42: only true when the adjusted current node is a foreign
// (SVG/MathML) element.
func (tb *TreeBuilder) AllowCDATA() bool {
	current := tb.currentElement()
	if current == nil {
		return false
	}
	return current.Namespace != dom.NamespaceHTML
}

// PendingCharsetChange returns a charset label seen in a <meta> tag since the
// last call, if any, and clears it. The engine calls this after draining each
// token so it can attempt inputstream.ChangeCharset (WHATWG §13.2.3.3's
// "change the encoding" algorithm runs at tree-construction time, not just
// during the pre-parse prescan).
func (tb *TreeBuilder) PendingCharsetChange() (string, bool) {
	label := tb.pendingCharset
	tb.pendingCharset = ""
	return label, label != ""
}

// noteMetaCharset records a charset label found on a <meta> start tag for
// PendingCharsetChange to pick up, per WHATWG §13.2.6.4.7: a charset
// attribute wins outright; otherwise an http-equiv="content-type" meta's
// content attribute is parsed for a charset= parameter.
func (tb *TreeBuilder) noteMetaCharset(tok tokenizer.Token) {
	label := tok.AttrVal("charset")
	if label == "" {
		if !strings.EqualFold(tok.AttrVal("http-equiv"), "content-type") {
			return
		}
		label = extractCharsetFromContentType(tok.AttrVal("content"))
	}
	if label == "" {
		return
	}
	// The sink is told first and may veto the restart.
	if err := tb.sink.ChangeEncoding(label); err != nil {
		return
	}
	tb.pendingCharset = label
}

// extractCharsetFromContentType pulls the charset parameter out of a
// Content-Type-style string, e.g. "text/html; charset=iso-8859-1".
func extractCharsetFromContentType(content string) string {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, "charset")
	if idx == -1 {
		return ""
	}
	rest := content[idx+len("charset"):]
	rest = strings.TrimLeft(rest, " \t\n\f")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\n\f")
	if rest == "" {
		return ""
	}
	if rest[0] == '"' || rest[0] == '\'' {
		quote := rest[0]
		end := strings.IndexByte(rest[1:], quote)
		if end == -1 {
			return ""
		}
		return rest[1 : 1+end]
	}
	end := strings.IndexAny(rest, " \t\n\f;")
	if end == -1 {
		return rest
	}
	return rest[:end]
}

func (tb *TreeBuilder) insertComment(data string) {
	n, _ := tb.sink.CreateComment(data)
	tb.insertNode(n.(dom.Node), nil)
}

// appendDocumentComment attaches a comment directly to the document node,
// for the modes that comment on the document rather than the current node.
func (tb *TreeBuilder) appendDocumentComment(data string) {
	n, _ := tb.sink.CreateComment(data)
	tb.sink.AppendChild(tb.document, n)
}

func (tb *TreeBuilder) insertText(data string) {
	if data == "" {
		return
	}
	n, _ := tb.sink.CreateText(data)
	parent, before := tb.appropriateInsertionLocation()
	tb.insertNode(n.(dom.Node), &insertionLocation{parent: parent, before: before})
}

// insertFosterText inserts text data at the foster-parent insertion location
// (§13.2.6.1) unconditionally, for callers that have already decided foster
// parenting applies rather than relying on the fosterParenting flag.
func (tb *TreeBuilder) insertFosterText(data string) {
	if data == "" {
		return
	}
	n, _ := tb.sink.CreateText(data)
	parent, before := tb.fosterInsertionLocation()
	tb.insertNode(n.(dom.Node), &insertionLocation{parent: parent, before: before})
}

// createElement builds a detached element through the sink, forcing the
// content fragment into existence for template elements.
func (tb *TreeBuilder) createElement(name string, attrs []tokenizer.Attr) *dom.Element {
	tag := sink.Tag{Name: name}
	for _, a := range attrs {
		tag.Attributes = append(tag.Attributes, sink.Attribute{
			Namespace: a.Namespace,
			Name:      a.Name,
			Value:     a.Value,
		})
	}
	n, _ := tb.sink.CreateElement(tag)
	el := n.(*dom.Element)
	if el.TagName == "template" && el.Namespace == dom.NamespaceHTML {
		tb.sink.TemplateContent(el)
	}
	return el
}

func (tb *TreeBuilder) insertElement(name string, attrs []tokenizer.Attr) *dom.Element {
	el := tb.createElement(name, attrs)
	tb.insertNode(el, nil)
	tb.pushOpenElement(el)
	tb.associateWithForm(el)
	return el
}

// associateWithForm records the form element pointer as the form owner of
// a just-inserted form-associated element (WHATWG §13.2.6.1 "insert an
// HTML element" step for form-associated elements). An explicit form
// attribute opts the element out of pointer-based association.
func (tb *TreeBuilder) associateWithForm(el *dom.Element) {
	if tb.formElement == nil || el.Namespace != dom.NamespaceHTML {
		return
	}
	if !constants.FormAssociatedElements[el.TagName] || el.HasAttr("form") {
		return
	}
	tb.sink.FormAssociate(tb.formElement, el)
}

func (tb *TreeBuilder) addMissingAttributes(el *dom.Element, attrs []tokenizer.Attr) {
	if el == nil || len(attrs) == 0 {
		return
	}
	if len(tb.templateModes) > 0 {
		return
	}
	out := make([]sink.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, sink.Attribute{
			Namespace: a.Namespace,
			Name:      a.Name,
			Value:     a.Value,
		})
	}
	tb.sink.AddAttributes(el, out)
}

// pushOpenElement puts el on the open-element stack, acquiring a sink
// reference on it. Every stack slot holds one reference; popCurrent and
// friends release it.
func (tb *TreeBuilder) pushOpenElement(el *dom.Element) {
	tb.sink.RefNode(el)
	tb.openElements = append(tb.openElements, el)
}

func (tb *TreeBuilder) popCurrent() *dom.Element {
	if len(tb.openElements) == 0 {
		return nil
	}
	el := tb.openElements[len(tb.openElements)-1]
	tb.openElements = tb.openElements[:len(tb.openElements)-1]
	tb.sink.UnrefNode(el)
	return el
}

func (tb *TreeBuilder) popUntil(name string) {
	for len(tb.openElements) > 0 {
		el := tb.openElements[len(tb.openElements)-1]
		tb.openElements = tb.openElements[:len(tb.openElements)-1]
		tb.sink.UnrefNode(el)
		if el.TagName == name {
			return
		}
	}
}

// popUntilCaseInsensitive is popUntil with a case-insensitive tag-name
// comparison, for end tags whose name may not have gone through the
// tokeniser's lowercasing (e.g. tokens built directly by tests).
func (tb *TreeBuilder) popUntilCaseInsensitive(name string) {
	for len(tb.openElements) > 0 {
		el := tb.openElements[len(tb.openElements)-1]
		tb.openElements = tb.openElements[:len(tb.openElements)-1]
		tb.sink.UnrefNode(el)
		if strings.EqualFold(el.TagName, name) {
			return
		}
	}
}

func (tb *TreeBuilder) elementInStack(name string) bool {
	for i := len(tb.openElements) - 1; i >= 0; i-- {
		if tb.openElements[i].TagName == name {
			return true
		}
	}
	return false
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		switch r {
		case '\t', '\n', '\f', '\r', ' ':
			continue
		default:
			return false
		}
	}
	return true
}

func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type insertionLocation struct {
	parent dom.Node
	before dom.Node
}

func (tb *TreeBuilder) withFosterParenting(fn func() bool) bool {
	prev := tb.fosterParenting
	tb.fosterParenting = true
	defer func() { tb.fosterParenting = prev }()
	return fn()
}

func (tb *TreeBuilder) appropriateInsertionLocation() (dom.Node, dom.Node) {
	if current := tb.currentElement(); current != nil && current.Namespace == dom.NamespaceHTML && current.TagName == "template" {
		if current.TemplateContent == nil {
			current.TemplateContent = dom.NewDocumentFragment()
		}
		return current.TemplateContent, nil
	}
	if !tb.fosterParenting || !shouldFosterForNode(tb.currentElement()) {
		return tb.currentNode(), nil
	}
	return tb.fosterInsertionLocation()
}

func shouldFosterForNode(el *dom.Element) bool {
	if el == nil || el.Namespace != dom.NamespaceHTML {
		return false
	}
	return constants.TableFosterTargets[el.TagName]
}

func (tb *TreeBuilder) shouldFosterParenting(target *dom.Element, forTag string, isText bool) bool {
	if !tb.fosterParenting {
		return false
	}
	if target == nil || target.Namespace != dom.NamespaceHTML {
		return false
	}
	if !constants.TableFosterTargets[target.TagName] {
		return false
	}
	if isText {
		return true
	}
	if forTag != "" && constants.TableAllowedChildren[forTag] {
		return false
	}
	return true
}

func (tb *TreeBuilder) fosterInsertionLocation() (dom.Node, dom.Node) {
	tableEl, tableIndex := tb.lastTableElement()
	templateEl, templateIndex := tb.lastTemplateElement()
	if templateEl != nil && (tableEl == nil || templateIndex > tableIndex) {
		if templateEl.TemplateContent == nil {
			templateEl.TemplateContent = dom.NewDocumentFragment()
		}
		return templateEl.TemplateContent, nil
	}
	if tableEl == nil {
		return tb.currentNode(), nil
	}
	if p := tableEl.Parent(); p != nil {
		return p, tableEl
	}

	// If the table element has no parent, insert into the element immediately above it in the stack.
	if tableIndex > 0 {
		return tb.openElements[tableIndex-1], nil
	}
	return tb.document, nil
}

func (tb *TreeBuilder) lastTableElement() (*dom.Element, int) {
	for i := len(tb.openElements) - 1; i >= 0; i-- {
		el := tb.openElements[i]
		if el != nil && el.Namespace == dom.NamespaceHTML && el.TagName == "table" {
			return el, i
		}
	}
	return nil, -1
}

func (tb *TreeBuilder) lastTemplateElement() (*dom.Element, int) {
	for i := len(tb.openElements) - 1; i >= 0; i-- {
		el := tb.openElements[i]
		if el != nil && el.Namespace == dom.NamespaceHTML && el.TagName == "template" {
			return el, i
		}
	}
	return nil, -1
}

func (tb *TreeBuilder) insertNode(node dom.Node, loc *insertionLocation) {
	var parent dom.Node
	var before dom.Node
	if loc != nil && loc.parent != nil {
		parent = loc.parent
		before = loc.before
	} else {
		parent, before = tb.appropriateInsertionLocation()
	}

	if before == nil {
		tb.sink.AppendChild(parent, node)
		return
	}
	tb.sink.InsertBefore(parent, node, before)
}

// setQuirksMode reports the document compatibility mode through the sink.
func (tb *TreeBuilder) setQuirksMode(mode dom.QuirksMode) {
	switch mode {
	case dom.Quirks:
		tb.sink.SetQuirksMode(sink.Quirks)
	case dom.LimitedQuirks:
		tb.sink.SetQuirksMode(sink.LimitedQuirks)
	default:
		tb.sink.SetQuirksMode(sink.NoQuirks)
	}
}
