package engine

import "testing"

func TestParseChunkAcrossMultipleChunksBuildsSameTree(t *testing.T) {
	e := Create()
	if err := e.ParseChunk([]byte("<html><body><p>hel")); err != nil {
		t.Fatalf("ParseChunk #1: %v", err)
	}
	if err := e.ParseChunk([]byte("lo</p></body></html>")); err != nil {
		t.Fatalf("ParseChunk #2: %v", err)
	}
	if err := e.Completed(); err != nil {
		t.Fatalf("Completed: %v", err)
	}

	body := e.Document().Body()
	if body == nil {
		t.Fatalf("Document().Body() = nil")
	}
	if got := body.Text(); got != "hello" {
		t.Fatalf("body text = %q, want %q", got, "hello")
	}
}

func TestParseChunkByteBoundaryInvariance(t *testing.T) {
	whole := "<div><span>chunk boundary test</span></div>"

	oneShot := Create()
	if err := oneShot.ParseChunk([]byte(whole)); err != nil {
		t.Fatalf("one-shot ParseChunk: %v", err)
	}
	if err := oneShot.Completed(); err != nil {
		t.Fatalf("one-shot Completed: %v", err)
	}

	split := Create()
	for i := 0; i < len(whole); i++ {
		if err := split.ParseChunk([]byte{whole[i]}); err != nil {
			t.Fatalf("split ParseChunk at byte %d: %v", i, err)
		}
	}
	if err := split.Completed(); err != nil {
		t.Fatalf("split Completed: %v", err)
	}

	oneShotText := oneShot.Document().Body().Text()
	splitText := split.Document().Body().Text()
	if oneShotText != splitText {
		t.Fatalf("split text = %q, want %q (one-shot)", splitText, oneShotText)
	}
}

func TestParseExtraneousChunkInsertsAtReadPoint(t *testing.T) {
	e := Create()
	if err := e.ParseChunk([]byte("<p>ac</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if err := e.ParseExtraneousChunk("b"); err != nil {
		t.Fatalf("ParseExtraneousChunk: %v", err)
	}
	if err := e.Completed(); err != nil {
		t.Fatalf("Completed: %v", err)
	}

	// The charset is still undetermined before Completed, so nothing has
	// been decoded or read yet: the read point is the start of the stream.
	body := e.Document().Body()
	if got := body.Text(); got != "bac" {
		t.Fatalf("body text = %q, want %q", got, "bac")
	}
}

func TestReadCharsetReportsBOMAsCertain(t *testing.T) {
	e := Create()
	if err := e.ParseChunk([]byte("\xEF\xBB\xBF<p>hi</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	name, confidence := e.ReadCharset()
	if name != "UTF-8" {
		t.Fatalf("ReadCharset() name = %q, want UTF-8", name)
	}
	if confidence.String() != "certain" {
		t.Fatalf("ReadCharset() confidence = %v, want certain", confidence)
	}
}

func TestWithEncodingAppliesHint(t *testing.T) {
	e := Create(WithEncoding("iso-8859-2"))
	if err := e.ParseChunk([]byte("<p>hi</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	name, _ := e.ReadCharset()
	if name != "iso-8859-2" {
		t.Fatalf("ReadCharset() name = %q, want iso-8859-2", name)
	}
}

func TestFragmentParsingReturnsTopLevelNodes(t *testing.T) {
	e := Create(WithFragment("div"))
	if err := e.ParseChunk([]byte("<p>one</p><p>two</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if err := e.Completed(); err != nil {
		t.Fatalf("Completed: %v", err)
	}

	nodes := e.FragmentNodes()
	if len(nodes) != 2 {
		t.Fatalf("FragmentNodes() = %d nodes, want 2", len(nodes))
	}
	if nodes[0].TagName != "p" || nodes[1].TagName != "p" {
		t.Fatalf("FragmentNodes() tags = %q, %q, want p, p", nodes[0].TagName, nodes[1].TagName)
	}
}

func TestParseChunkAfterCompletedIsRejected(t *testing.T) {
	e := Create()
	if err := e.ParseChunk([]byte("<p>hi</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if err := e.Completed(); err != nil {
		t.Fatalf("Completed: %v", err)
	}
	err := e.ParseChunk([]byte("more"))
	if err == nil {
		t.Fatalf("ParseChunk after Completed = nil, want error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindParam {
		t.Fatalf("ParseChunk after Completed error = %#v, want KindParam", err)
	}
}

func TestPauseBlocksParseChunk(t *testing.T) {
	e := Create()
	e.Pause()
	err := e.ParseChunk([]byte("<p>hi</p>"))
	if err == nil {
		t.Fatalf("ParseChunk while paused = nil, want error")
	}
	if perr, ok := err.(*Error); !ok || perr.Kind != KindPaused {
		t.Fatalf("ParseChunk while paused error = %#v, want KindPaused", err)
	}

	e.Resume()
	if err := e.ParseChunk([]byte("<p>hi</p>")); err != nil {
		t.Fatalf("ParseChunk after Resume: %v", err)
	}
}

func TestClaimBufferTransfersRemainingBytes(t *testing.T) {
	e := Create()
	if err := e.ParseChunk([]byte("<p>hi</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	buf := e.ClaimBuffer()
	if string(buf) != "<p>hi</p>" {
		t.Fatalf("ClaimBuffer() = %q, want %q", buf, "<p>hi</p>")
	}
}

func TestCollectErrorsSurfacesParseErrors(t *testing.T) {
	e := Create(WithCollectErrors())
	if err := e.ParseChunk([]byte("<p \x00>hi</p>")); err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if err := e.Completed(); err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if len(e.Errors()) == 0 {
		t.Fatalf("Errors() = empty, want at least one collected parse error")
	}
}

func TestParseChunkCollapsesCRLFAcrossChunks(t *testing.T) {
	whole := Create()
	if err := whole.ParseChunk([]byte("<pre>a\r\nb\rc</pre>")); err != nil {
		t.Fatalf("one-shot ParseChunk: %v", err)
	}
	if err := whole.Completed(); err != nil {
		t.Fatalf("one-shot Completed: %v", err)
	}
	if got := whole.Document().Body().Text(); got != "a\nb\nc" {
		t.Fatalf("one-shot text = %q, want %q", got, "a\nb\nc")
	}

	// Same input with the chunk boundary landing between CR and LF.
	split := Create()
	if err := split.ParseChunk([]byte("<pre>a\r")); err != nil {
		t.Fatalf("split ParseChunk #1: %v", err)
	}
	if err := split.ParseChunk([]byte("\nb\rc</pre>")); err != nil {
		t.Fatalf("split ParseChunk #2: %v", err)
	}
	if err := split.Completed(); err != nil {
		t.Fatalf("split Completed: %v", err)
	}
	if got := split.Document().Body().Text(); got != "a\nb\nc" {
		t.Fatalf("split text = %q, want %q", got, "a\nb\nc")
	}
}
