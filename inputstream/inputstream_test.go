package inputstream

import "testing"

func drain(t *testing.T, s *Stream) (string, Result) {
	t.Helper()
	var out []rune
	for {
		r, res := s.NextCharacter()
		switch res {
		case CharacterResult:
			out = append(out, r)
		default:
			return string(out), res
		}
	}
}

func TestBOMDetectionIsCertain(t *testing.T) {
	s := New()
	s.Append([]byte("\xEF\xBB\xBFhello"))
	s.Completed()

	name, confidence := s.ReadCharset()
	if name != "UTF-8" || confidence != Certain {
		t.Fatalf("ReadCharset() = (%q, %v), want (UTF-8, Certain)", name, confidence)
	}
	text, res := drain(t, s)
	if res != EOF || text != "hello" {
		t.Fatalf("drain() = (%q, %v), want (hello, EOF)", text, res)
	}
}

func TestEncodingHintIsCertain(t *testing.T) {
	s := New(WithEncodingHint("iso-8859-2"))
	s.Append([]byte("abc"))
	s.Completed()

	name, confidence := s.ReadCharset()
	if name != "iso-8859-2" || confidence != Certain {
		t.Fatalf("ReadCharset() = (%q, %v), want (iso-8859-2, Certain)", name, confidence)
	}
}

func TestDefaultsToTentativeWindows1252WhenCompleted(t *testing.T) {
	s := New()
	s.Append([]byte("plain text, no bom, no meta"))
	s.Completed()

	name, confidence := s.ReadCharset()
	if name != "windows-1252" || confidence != Tentative {
		t.Fatalf("ReadCharset() = (%q, %v), want (windows-1252, Tentative)", name, confidence)
	}
}

func TestNeedsDataBeforeCompleted(t *testing.T) {
	s := New()
	s.Append([]byte("abc"))
	// Confidence is still Unknown (no BOM/hint/meta seen, not completed yet),
	// so nothing has been decoded and NextCharacter must signal NeedsData
	// rather than guessing at a default encoding prematurely.
	_, res := s.NextCharacter()
	if res != NeedsData {
		t.Fatalf("NextCharacter() result = %v, want NeedsData", res)
	}
}

func TestChangeCharsetRestartsWhileTentative(t *testing.T) {
	s := New()
	s.Append([]byte("café"))
	s.Completed()
	if _, confidence := s.ReadCharset(); confidence != Tentative {
		t.Fatalf("expected Tentative confidence before ChangeCharset")
	}

	ok := s.ChangeCharset("utf-8")
	if !ok {
		t.Fatalf("ChangeCharset() = false, want true while confidence is Tentative")
	}
	name, confidence := s.ReadCharset()
	if name != "UTF-8" || confidence != Certain {
		t.Fatalf("ReadCharset() after change = (%q, %v), want (UTF-8, Certain)", name, confidence)
	}
}

func TestChangeCharsetRejectedOnceCertain(t *testing.T) {
	s := New()
	s.Append([]byte("\xEF\xBB\xBFhello"))
	if s.ChangeCharset("windows-1252") {
		t.Fatalf("ChangeCharset() = true, want false once confidence is Certain (BOM)")
	}
}

func TestInsertSplicesAtReadCursor(t *testing.T) {
	s := New()
	s.Append([]byte("\xEF\xBB\xBFac"))
	s.Completed()

	r, res := s.NextCharacter()
	if res != CharacterResult || r != 'a' {
		t.Fatalf("first NextCharacter() = (%q, %v), want ('a', CharacterResult)", r, res)
	}

	s.Insert("b")
	text, res := drain(t, s)
	if res != EOF || text != "bc" {
		t.Fatalf("drain() after Insert = (%q, %v), want (bc, EOF)", text, res)
	}
}

func TestClaimBufferTransfersOwnership(t *testing.T) {
	s := New()
	s.Append([]byte("hello"))
	claimed := s.ClaimBuffer()
	if string(claimed) != "hello" {
		t.Fatalf("ClaimBuffer() = %q, want %q", claimed, "hello")
	}
	if _, res := s.NextCharacter(); res != NeedsData {
		t.Fatalf("NextCharacter() after ClaimBuffer = %v, want NeedsData (stream is drained)", res)
	}
}

func TestCRLFCollapsesToSingleLF(t *testing.T) {
	s := New(WithEncodingHint("utf-8"))
	s.Append([]byte("a\r\nb\rc"))
	s.Completed()

	text, res := drain(t, s)
	if res != EOF {
		t.Fatalf("drain() result = %v, want EOF", res)
	}
	if text != "a\nb\nc" {
		t.Fatalf("drain() = %q, want %q", text, "a\nb\nc")
	}
}

func TestPendingCollapsesCRLF(t *testing.T) {
	s := New(WithEncodingHint("utf-8"))
	s.Append([]byte("a\r\nb\rc"))
	s.Completed()

	if got := s.Pending(); got != "a\nb\nc" {
		t.Fatalf("Pending() = %q, want %q", got, "a\nb\nc")
	}
	s.ConsumePending()
	if got := s.Pending(); got != "" {
		t.Fatalf("Pending() after consume = %q, want empty", got)
	}
}

func TestPendingHoldsBackTrailingCRUntilDecidable(t *testing.T) {
	s := New(WithEncodingHint("utf-8"))
	s.Append([]byte("a\r"))

	if got := s.Pending(); got != "a" {
		t.Fatalf("Pending() = %q, want %q (CR held back)", got, "a")
	}
	s.ConsumePending()

	s.Append([]byte("\nb"))
	if got := s.Pending(); got != "\nb" {
		t.Fatalf("Pending() after LF chunk = %q, want %q", got, "\nb")
	}
	s.ConsumePending()
	s.Completed()
	if got := s.Pending(); got != "" {
		t.Fatalf("Pending() at EOF = %q, want empty", got)
	}
}

func TestPendingEmitsTrailingCRAtEOF(t *testing.T) {
	s := New(WithEncodingHint("utf-8"))
	s.Append([]byte("a\r"))
	s.Completed()

	if got := s.Pending(); got != "a\n" {
		t.Fatalf("Pending() = %q, want %q", got, "a\n")
	}
}

func TestNextCharacterHoldsBackTrailingCR(t *testing.T) {
	s := New(WithEncodingHint("utf-8"))
	s.Append([]byte("\r"))

	if _, res := s.NextCharacter(); res != NeedsData {
		t.Fatalf("NextCharacter() on undecidable CR = %v, want NeedsData", res)
	}
	s.Append([]byte("\n"))
	s.Completed()
	r, res := s.NextCharacter()
	if res != CharacterResult || r != '\n' {
		t.Fatalf("NextCharacter() = (%q, %v), want single LF", r, res)
	}
	if _, res := s.NextCharacter(); res != EOF {
		t.Fatalf("NextCharacter() = %v, want EOF", res)
	}
}
