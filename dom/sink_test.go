package dom

import (
	"testing"

	"github.com/htmlcore/parser/sink"
)

func TestSinkAppendChildCoalescesText(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	p, _ := s.CreateElement(sink.Tag{Name: "p"})
	t1, _ := s.CreateText("hello ")
	t2, _ := s.CreateText("world")

	first, err := s.AppendChild(p, t1)
	if err != nil {
		t.Fatalf("AppendChild(t1) error: %v", err)
	}
	merged, err := s.AppendChild(p, t2)
	if err != nil {
		t.Fatalf("AppendChild(t2) error: %v", err)
	}

	if merged != first {
		t.Fatalf("second append returned %v, want the first text node", merged)
	}
	el := p.(*Element)
	if len(el.Children()) != 1 {
		t.Fatalf("got %d children, want 1", len(el.Children()))
	}
	if got := el.Children()[0].(*Text).Data; got != "hello world" {
		t.Fatalf("coalesced data = %q, want %q", got, "hello world")
	}
}

func TestSinkInsertBeforeMergesIntoPrecedingText(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	p, _ := s.CreateElement(sink.Tag{Name: "p"})
	txt, _ := s.CreateText("a")
	table, _ := s.CreateElement(sink.Tag{Name: "table"})
	s.AppendChild(p, txt)
	s.AppendChild(p, table)

	fostered, _ := s.CreateText("b")
	merged, err := s.InsertBefore(p, fostered, table)
	if err != nil {
		t.Fatalf("InsertBefore error: %v", err)
	}
	if merged != txt {
		t.Fatalf("InsertBefore returned %v, want preceding text node", merged)
	}
	if got := txt.(*Text).Data; got != "ab" {
		t.Fatalf("merged data = %q, want %q", got, "ab")
	}
	if len(p.(*Element).Children()) != 2 {
		t.Fatalf("got %d children, want 2", len(p.(*Element).Children()))
	}
}

func TestSinkInsertBeforeNilRefAppends(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	body, _ := s.CreateElement(sink.Tag{Name: "body"})
	div, _ := s.CreateElement(sink.Tag{Name: "div"})
	if _, err := s.InsertBefore(body, div, nil); err != nil {
		t.Fatalf("InsertBefore(nil ref) error: %v", err)
	}
	kids := body.(*Element).Children()
	if len(kids) != 1 || kids[0] != div {
		t.Fatalf("nil-ref insert did not append: %v", kids)
	}
}

func TestSinkRefUnrefBalance(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	h, _ := s.CreateElement(sink.Tag{Name: "b"})
	el := h.(*Element)

	s.RefNode(h)
	s.RefNode(h)
	if el.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", el.RefCount())
	}
	s.UnrefNode(h)
	s.UnrefNode(h)
	if el.RefCount() != 0 {
		t.Fatalf("RefCount = %d, want 0", el.RefCount())
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Unref past zero did not panic")
		}
	}()
	s.UnrefNode(h)
}

func TestSinkTemplateContentMemoized(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	tmpl, _ := s.CreateElement(sink.Tag{Name: "template"})
	c1 := s.TemplateContent(tmpl)
	c2 := s.TemplateContent(tmpl)
	if c1 == nil {
		t.Fatal("TemplateContent returned nil")
	}
	if c1 != c2 {
		t.Fatal("TemplateContent returned a new fragment on second call")
	}
	if _, ok := c1.(*DocumentFragment); !ok {
		t.Fatalf("TemplateContent returned %T, want *DocumentFragment", c1)
	}
}

func TestSinkSetQuirksMode(t *testing.T) {
	tests := []struct {
		in   sink.QuirksMode
		want QuirksMode
	}{
		{sink.NoQuirks, NoQuirks},
		{sink.Quirks, Quirks},
		{sink.LimitedQuirks, LimitedQuirks},
	}
	for _, tt := range tests {
		doc := NewDocument()
		s := NewSink(doc)
		s.SetQuirksMode(tt.in)
		if doc.QuirksMode != tt.want {
			t.Errorf("SetQuirksMode(%v): doc mode = %v, want %v", tt.in, doc.QuirksMode, tt.want)
		}
	}
}

func TestSinkFormAssociate(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	form, _ := s.CreateElement(sink.Tag{Name: "form"})
	input, _ := s.CreateElement(sink.Tag{Name: "input"})
	if err := s.FormAssociate(form, input); err != nil {
		t.Fatalf("FormAssociate error: %v", err)
	}
	if input.(*Element).AssociatedForm != form.(*Element) {
		t.Fatal("AssociatedForm not set")
	}

	txt, _ := s.CreateText("x")
	if err := s.FormAssociate(form, txt); err == nil {
		t.Fatal("FormAssociate on a text node did not error")
	}
}

func TestSinkReparentChildren(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	src, _ := s.CreateElement(sink.Tag{Name: "b"})
	dst, _ := s.CreateElement(sink.Tag{Name: "i"})
	a, _ := s.CreateText("a")
	span, _ := s.CreateElement(sink.Tag{Name: "span"})
	s.AppendChild(src, a)
	s.AppendChild(src, span)

	if err := s.ReparentChildren(src, dst); err != nil {
		t.Fatalf("ReparentChildren error: %v", err)
	}
	if src.(*Element).HasChildNodes() {
		t.Fatal("src still has children")
	}
	kids := dst.(*Element).Children()
	if len(kids) != 2 || kids[0] != a || kids[1] != span {
		t.Fatalf("dst children wrong: %v", kids)
	}
	if span.(*Element).Parent() != dst {
		t.Fatal("reparented child's Parent not updated")
	}
}

func TestSinkAddAttributesKeepsExisting(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	h, _ := s.CreateElement(sink.Tag{
		Name:       "html",
		Attributes: []sink.Attribute{{Name: "lang", Value: "en"}},
	})
	err := s.AddAttributes(h, []sink.Attribute{
		{Name: "lang", Value: "de"},
		{Name: "dir", Value: "ltr"},
	})
	if err != nil {
		t.Fatalf("AddAttributes error: %v", err)
	}
	el := h.(*Element)
	if got, _ := el.Attributes.Get("lang"); got != "en" {
		t.Fatalf("lang = %q, want existing value %q kept", got, "en")
	}
	if got, _ := el.Attributes.Get("dir"); got != "ltr" {
		t.Fatalf("dir = %q, want %q", got, "ltr")
	}
}

func TestSinkAppendDoctypeSetsDocumentField(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	dt, _ := s.CreateDoctype(sink.Doctype{Name: "html"})
	if _, err := s.AppendChild(doc, dt); err != nil {
		t.Fatalf("AppendChild(doctype) error: %v", err)
	}
	if doc.Doctype == nil || doc.Doctype.Name != "html" {
		t.Fatalf("doc.Doctype = %+v, want name html", doc.Doctype)
	}
}

func TestSinkGetParent(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	html, _ := s.CreateElement(sink.Tag{Name: "html"})
	s.AppendChild(doc, html)

	if got := s.GetParent(html, false); got != doc {
		t.Fatalf("GetParent = %v, want document", got)
	}
	if got := s.GetParent(html, true); got != nil {
		t.Fatalf("GetParent(elementOnly) = %v, want nil for document parent", got)
	}
	body, _ := s.CreateElement(sink.Tag{Name: "body"})
	s.AppendChild(html, body)
	if got := s.GetParent(body, true); got != html {
		t.Fatalf("GetParent(elementOnly) = %v, want html", got)
	}
}

func TestSinkInsertBeforeMergesIntoTextRef(t *testing.T) {
	doc := NewDocument()
	s := NewSink(doc)

	p, _ := s.CreateElement(sink.Tag{Name: "p"})
	ref, _ := s.CreateText("b")
	s.AppendChild(p, ref)

	child, _ := s.CreateText("a")
	merged, err := s.InsertBefore(p, child, ref)
	if err != nil {
		t.Fatalf("InsertBefore error: %v", err)
	}
	if merged != ref {
		t.Fatalf("InsertBefore returned %v, want the reference text node", merged)
	}
	if got := ref.(*Text).Data; got != "ab" {
		t.Fatalf("merged data = %q, want %q", got, "ab")
	}
	if len(p.(*Element).Children()) != 1 {
		t.Fatalf("got %d children, want 1", len(p.(*Element).Children()))
	}
}
