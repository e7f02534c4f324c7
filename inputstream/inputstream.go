// Package inputstream implements the HTML5 input stream: a growable byte
// buffer with a decoder, staged charset detection, and script-insertion
// re-entrancy. It sits in front of the tokenizer, reusing the encoding
// package's detection stages instead of its one-shot Decode call.
package inputstream

import (
	"strings"

	"github.com/htmlcore/parser/encoding"
)

// Confidence tracks how the current charset was arrived at, per WHATWG
// §13.2.3.2's encoding-sniffing algorithm.
type Confidence int

// Confidence levels, from least to most certain. Encoding may still change
// while Unknown or Tentative; Confident and Certain are terminal.
const (
	Unknown Confidence = iota
	Tentative
	Confident
	Certain
)

// String returns a human-readable confidence level name.
func (c Confidence) String() string {
	switch c {
	case Tentative:
		return "tentative"
	case Confident:
		return "confident"
	case Certain:
		return "certain"
	default:
		return "unknown"
	}
}

// metaSniffWindow is the number of leading bytes scanned for a <meta
// charset> declaration before falling back to the windows-1252 default,
// per WHATWG §13.2.3.2's prescan byte limit.
const metaSniffWindow = 1024

// Result is the scalar or sentinel value produced by NextCharacter.
type Result int

const (
	// CharacterResult indicates Stream.Char holds a decoded rune.
	CharacterResult Result = iota
	// NeedsData indicates the buffered input is exhausted; more bytes are
	// required before the next character can be produced.
	NeedsData
	// EOF indicates the stream is complete and fully consumed.
	EOF
	// EncodingChanged indicates a tentative-state charset change triggered
	// a restart; the caller must discard any in-flight tokenizer/tree
	// builder state and re-read from the beginning of the (re-fed) buffer.
	EncodingChanged
)

// Stream is the HTML5 input stream: a byte buffer with a read cursor, a
// decoder, and a charset confidence level. It buffers raw bytes (not
// decoded characters) so that a tentative-state ChangeCharset can re-decode
// everything seen so far under the new encoding.
type Stream struct {
	raw       []byte // all bytes ever appended, retained for restart-on-change
	completed bool

	decoded    []rune // decoded characters not yet consumed
	decodedPos int    // read cursor into decoded
	pendingEnd int    // end index of the last Pending call's slice

	// insertDepth is not read anywhere: Insert always splices at
	// decodedPos, the read cursor.
	insertDepth int

	charset    *encoding.Encoding
	confidence Confidence

	// hint is the client-declared (transport) encoding, if any. It wins
	// over everything but a BOM and is applied with Certain confidence.
	hint string
}

// Option configures a new Stream.
type Option func(*Stream)

// WithEncodingHint supplies a client-declared (transport-layer) encoding,
// applied with Certain confidence right after BOM detection (a BOM still
// takes priority over this hint).
func WithEncodingHint(label string) Option {
	return func(s *Stream) {
		s.hint = label
	}
}

// New creates an empty Stream ready to receive bytes via Append.
func New(opts ...Option) *Stream {
	s := &Stream{confidence: Unknown}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds newly received bytes to the stream (e.g. a network chunk).
// If the charset has not yet reached Confident/Certain, Append re-runs
// encoding detection against the full accumulated buffer and re-decodes
// from scratch; once Confident or Certain, new bytes are decoded
// incrementally and appended to the pending character queue.
func (s *Stream) Append(data []byte) {
	s.raw = append(s.raw, data...)
	if s.confidence == Confident || s.confidence == Certain {
		decoded, _ := encoding.DecodeWithEncoding(data, s.charset)
		s.decoded = append(s.decoded, []rune(decoded)...)
		return
	}
	s.detectAndDecode()
}

// Insert splices decoded characters at the current read cursor, for
// document.write-style script-inserted data.
// The inserted characters are consumed before anything that followed the
// cursor at the time of the call.
func (s *Stream) Insert(data string) {
	runes := []rune(data)
	head := append([]rune(nil), s.decoded[:s.decodedPos]...)
	tail := append([]rune(nil), s.decoded[s.decodedPos:]...)
	head = append(head, runes...)
	s.decoded = append(head, tail...)
}

// Completed marks that no more bytes will be appended; once the decoded
// queue is drained, NextCharacter reports EOF instead of NeedsData. If the
// charset hadn't yet committed to a stage-4 default (no BOM, no hint, no
// meta match found in time), this is what finally applies it.
func (s *Stream) Completed() {
	s.completed = true
	if s.confidence != Confident && s.confidence != Certain {
		s.detectAndDecode()
	}
}

// detectAndDecode runs the staged encoding-detection algorithm (BOM,
// client hint, meta prescan, windows-1252 default) against the full raw buffer and replaces the decoded queue. Called
// whenever confidence has not yet reached Confident/Certain, since each new
// chunk might supply the meta declaration (or enough of the BOM) that an
// earlier, smaller buffer didn't have.
func (s *Stream) detectAndDecode() {
	// Stage 1: BOM -> certain.
	if enc := encoding.DetectBOM(s.raw); enc != nil {
		bomLen := encoding.BOMLength(enc)
		s.charset = enc
		s.confidence = Certain
		decoded, _ := encoding.DecodeWithEncoding(s.raw[bomLen:], enc)
		s.decoded = []rune(decoded)
		s.decodedPos = 0
		s.pendingEnd = 0
		return
	}

	// Stage 2: client-declared encoding -> certain.
	if s.hint != "" {
		if enc := encoding.NormalizeLabel(s.hint); enc != nil {
			s.setCharset(enc, Certain)
			return
		}
	}

	// Stage 3: meta-tag sniff within the first N bytes -> confident.
	window := s.raw
	if len(window) > metaSniffWindow {
		window = window[:metaSniffWindow]
	}
	if enc := encoding.PrescanMetaCharset(window); enc != nil {
		s.setCharset(enc, Confident)
		return
	}

	// Not enough signal yet: only commit to the windows-1252 default once
	// the stream is known complete (more bytes might still carry a BOM or
	// a meta tag); until then hold everything as Unknown and undecoded.
	if s.completed {
		s.setCharset(encoding.Windows1252, Tentative)
		return
	}
}

func (s *Stream) setCharset(enc *encoding.Encoding, confidence Confidence) {
	s.charset = enc
	s.confidence = confidence
	decoded, _ := encoding.DecodeWithEncoding(s.raw, enc)
	s.decoded = []rune(decoded)
	s.decodedPos = 0
	s.pendingEnd = 0
}

// ReadCharset returns the currently detected encoding name and confidence.
func (s *Stream) ReadCharset() (name string, confidence Confidence) {
	if s.charset == nil {
		return "", Unknown
	}
	return s.charset.Name, s.confidence
}

// ChangeCharset attempts to switch the stream to a new encoding, per spec
// §4.1's "change-charset during tentative state triggers a restart" rule.
// It succeeds (returning true) only while confidence is Unknown or
// Tentative; once Confident or Certain, the charset is fixed for the
// remainder of the parse and ChangeCharset is a no-op returning false.
//
// On success, the stream re-decodes its entire raw buffer under the new
// encoding and resets its read cursor to the start — callers (the engine)
// must also reset the tokenizer and tree builder, since the decoded
// character sequence underneath them has changed retroactively.
func (s *Stream) ChangeCharset(label string) bool {
	if s.confidence == Confident || s.confidence == Certain {
		return false
	}
	enc := encoding.NormalizeLabel(label)
	if enc == nil {
		return false
	}
	s.setCharset(enc, Certain)
	return true
}

// ClaimBuffer transfers ownership of every raw byte appended so far
// (including bytes already decoded, since the stream retains them for
// restarts) to the caller, e.g. when a client wants to hand
// off to a different consumer mid-stream. The Stream must not be used
// again after this call.
func (s *Stream) ClaimBuffer() []byte {
	claimed := s.raw
	s.raw = nil
	s.decoded = nil
	s.decodedPos = 0
	s.pendingEnd = 0
	return claimed
}

// preprocess applies the HTML5 character pre-processing rules:
// CRLF -> LF, lone CR -> LF, NUL -> U+FFFD. It is applied once per
// character as it's consumed rather than across the whole buffer, so a
// CRLF split across two Append calls is still collapsed correctly (the
// lone trailing CR case is handled by peeking one rune ahead).
func (s *Stream) preprocess(r rune) rune {
	switch r {
	case '\r':
		return '\n'
	case 0:
		return '�'
	default:
		return r
	}
}

// advance returns the pre-processed character at i along with the index of
// the character after it, collapsing a CRLF pair into a single LF. A CR at
// the very end of the buffer with more input possibly coming is not yet
// decidable (the next chunk may start with its LF), reported as ok=false.
func (s *Stream) advance(i int) (r rune, next int, ok bool) {
	r = s.decoded[i]
	if r == '\r' {
		if i+1 < len(s.decoded) {
			if s.decoded[i+1] == '\n' {
				i++
			}
		} else if !s.completed {
			return 0, i, false
		}
	}
	return s.preprocess(r), i + 1, true
}

// NextCharacter returns the next pre-processed character, or a sentinel
// Result when there isn't one yet.
func (s *Stream) NextCharacter() (rune, Result) {
	if s.decodedPos >= len(s.decoded) {
		if s.completed {
			return 0, EOF
		}
		return 0, NeedsData
	}
	r, next, ok := s.advance(s.decodedPos)
	if !ok {
		return 0, NeedsData
	}
	s.decodedPos = next
	return r, CharacterResult
}

// Pending returns the decoded characters not yet consumed, applying the
// same pre-processing as NextCharacter, for feeding a push tokenizer (e.g.
// via Grow) a chunk at a time. A trailing CR that cannot be collapse-decided
// yet is held back until the next chunk (or Completed) settles it.
func (s *Stream) Pending() string {
	var sb strings.Builder
	i := s.decodedPos
	for i < len(s.decoded) {
		r, next, ok := s.advance(i)
		if !ok {
			break
		}
		sb.WriteRune(r)
		i = next
	}
	s.pendingEnd = i
	return sb.String()
}

// ConsumePending advances the read cursor past everything the immediately
// preceding Pending call returned, for callers that drain the buffer
// through Pending+Grow instead of NextCharacter.
func (s *Stream) ConsumePending() {
	if s.pendingEnd > s.decodedPos {
		s.decodedPos = s.pendingEnd
	}
}
