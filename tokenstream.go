package parser

import (
	"github.com/htmlcore/parser/stream"
)

// TokenEventType classifies a raw tokeniser event (every Token variant
// except EOF, which closes the channel instead of being delivered as an
// event).
type TokenEventType = stream.EventType

// Token event kinds, re-exported from stream for callers that only import
// the root package.
const (
	StartTagToken = stream.StartTagEvent
	EndTagToken   = stream.EndTagEvent
	TextToken     = stream.TextEvent
	CommentToken  = stream.CommentEvent
	DoctypeToken  = stream.DoctypeEvent
)

// TokenEvent is one tokeniser output, re-exported from stream.
type TokenEvent = stream.Event

// StreamTokens drives the tokeniser directly over html and returns a channel
// of raw token events, bypassing the tree builder entirely.
//
// Setting a token handler this way disables the default tree builder:
// a caller that wants tokens
// instead of a constructed document (a linter, a syntax highlighter, a
// streaming text extractor) drives the tokeniser alone. The channel is
// closed when the tokeniser reaches EOF; tokeniser-level parse errors are
// swallowed (they are observational only and have no sink here to report
// to).
func StreamTokens(html string, opts ...StreamOption) <-chan TokenEvent {
	return stream.Stream(html, opts...)
}

// StreamTokensBytes is StreamTokens over raw bytes, decoded per WithEncoding
// if given or auto-detected otherwise (BOM, then a <meta> charset prescan,
// then the windows-1252 default; unlike engine.Engine there is no
// mid-stream restart on a later <meta> tag).
func StreamTokensBytes(html []byte, opts ...StreamOption) <-chan TokenEvent {
	return stream.StreamBytes(html, opts...)
}

// StreamOption configures StreamTokens/StreamTokensBytes.
type StreamOption = stream.Option

// WithTokenEncoding sets the character encoding used to decode bytes passed
// to StreamTokensBytes, overriding auto-detection.
func WithTokenEncoding(enc string) StreamOption {
	return stream.WithEncoding(enc)
}
