package treebuilder_test

import (
	"testing"

	"github.com/htmlcore/parser"
	"github.com/htmlcore/parser/dom"
	"github.com/htmlcore/parser/internal/testutil"
)

func TestPipeline_DoctypeAndSimpleBody(t *testing.T) {
	doc, err := parser.Parse("<!DOCTYPE html><p>hi</p>")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if doc.QuirksMode != dom.NoQuirks {
		t.Fatalf("QuirksMode = %v, want NoQuirks", doc.QuirksMode)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <!DOCTYPE html>
| <html>
|   <head>
|   <body>
|     <p>
|       "hi"`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestPipeline_MissingDoctypeSelectsQuirks(t *testing.T) {
	doc, err := parser.Parse("<p>hi</p>")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.QuirksMode != dom.Quirks {
		t.Fatalf("QuirksMode = %v, want Quirks", doc.QuirksMode)
	}
}

func TestPipeline_FosterParentedTableText(t *testing.T) {
	doc, err := parser.Parse("<table>a<tr><td>b")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <html>
|   <head>
|   <body>
|     "a"
|     <table>
|       <tbody>
|         <tr>
|           <td>
|             "b"`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestPipeline_AdoptionAgency_B_I_Misnesting(t *testing.T) {
	doc, err := parser.Parse("<b>1<i>2</b>3</i>4")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <html>
|   <head>
|   <body>
|     <b>
|       "1"
|       <i>
|         "2"
|     <i>
|       "3"
|     "4"`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestPipeline_ParagraphAutoClose(t *testing.T) {
	doc, err := parser.Parse("<p>x<p>y")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <html>
|   <head>
|   <body>
|     <p>
|       "x"
|     <p>
|       "y"`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestPipeline_ScriptDataEscapedCloseTag(t *testing.T) {
	doc, err := parser.Parse(`<script>var s = "</scr" + "ipt>";</script>`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <html>
|   <head>
|     <script>
|       "var s = "</scr" + "ipt>";"
|   <body>`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestPipeline_ForeignObjectIntegrationPoint(t *testing.T) {
	doc, err := parser.Parse(`<svg><foreignObject><div>hi</div></foreignObject></svg>`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	got := testutil.SerializeHTML5LibTree(doc)
	want := `| <html>
|   <head>
|   <body>
|     <svg svg>
|       <svg foreignObject>
|         <div>
|           "hi"`
	if got != want {
		t.Fatalf("tree mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}
