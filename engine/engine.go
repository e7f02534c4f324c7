// Package engine provides the public parsing lifecycle: create a parser,
// push chunks of bytes as they arrive, and read back the constructed
// document. Chunk boundaries are invisible to the result: the same
// sequence of tree-construction calls is made regardless of how the input
// was split across ParseChunk calls.
//
// It wires together inputstream (encoding detection and buffering),
// tokenizer (pushed via NewStreaming/Grow/Completed), and treebuilder (the
// insertion-mode state machine) into a loop that can suspend between
// chunks, replacing the single synchronous loop a one-shot Parse call
// would run.
package engine

import (
	"github.com/htmlcore/parser/dom"
	htmlerrors "github.com/htmlcore/parser/errors"
	"github.com/htmlcore/parser/inputstream"
	"github.com/htmlcore/parser/tokenizer"
	"github.com/htmlcore/parser/treebuilder"
)

// Kind classifies an error returned by the engine.
type Kind int

// Error kinds.
const (
	// KindParam indicates an invalid argument to an engine call.
	KindParam Kind = iota
	// KindNoMem indicates a sink allocation failure.
	KindNoMem
	// KindEncodingChange indicates ParseChunk triggered a tentative-state
	// encoding restart; the caller may inspect ReadCharset and continue
	// feeding chunks normally (the engine has already replayed the
	// buffered bytes under the new encoding internally).
	KindEncodingChange
	// KindPaused indicates the engine is paused for a script-insertion
	// point (see Pause/Resume) and ParseChunk/Completed were called while
	// paused.
	KindPaused
	// KindParseErr wraps one or more tokenizer/tree-construction parse
	// errors, only surfaced when WithCollectErrors or WithStrictMode is
	// set. Parse errors are non-fatal by default.
	KindParseErr
)

// Error is the engine's external error type, wrapping a Kind and,
// for KindParseErr, the underlying parse errors.
type Error struct {
	Kind    Kind
	Message string
	Errs    htmlerrors.ParseErrors
}

func (e *Error) Error() string {
	if e.Kind == KindParseErr && len(e.Errs) > 0 {
		return e.Errs.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.Kind == KindParseErr {
		return e.Errs
	}
	return nil
}

// Engine is a push-parseable HTML5 engine instance: an input stream, a
// streaming tokenizer, and a tree builder, kept alive across ParseChunk
// calls. Destroy exists for API symmetry with Create even though Go's GC
// reclaims everything the Engine touches once it is unreferenced.
type Engine struct {
	cfg    config
	stream *inputstream.Stream
	tok    *tokenizer.Tokenizer
	tb     *treebuilder.TreeBuilder

	paused    bool
	completed bool
}

type config struct {
	encodingHint  string
	fragment      *treebuilder.FragmentContext
	iframeSrcdoc  bool
	scripting     bool
	xmlCoercion   bool
	strict        bool
	collectErrors bool
}

// Option configures an Engine at Create time.
type Option func(*config)

// WithEncoding supplies a client-declared (transport) encoding hint,
// applied right after BOM detection in the input stream's sniffing order.
func WithEncoding(label string) Option {
	return func(c *config) { c.encodingHint = label }
}

// WithFragment configures fragment (innerHTML-style) parsing in the given
// context element's namespace-less (HTML) context.
func WithFragment(tagName string) Option {
	return func(c *config) {
		c.fragment = &treebuilder.FragmentContext{TagName: tagName, Namespace: "html"}
	}
}

// WithFragmentNS is WithFragment for a foreign (SVG/MathML) context.
func WithFragmentNS(tagName, namespace string) Option {
	return func(c *config) {
		c.fragment = &treebuilder.FragmentContext{TagName: tagName, Namespace: namespace}
	}
}

// WithIframeSrcdoc enables iframe srcdoc parsing mode.
func WithIframeSrcdoc() Option {
	return func(c *config) { c.iframeSrcdoc = true }
}

// WithXMLCoercion enables XML-coercion output for text/comment tokens
// (used by XHTML-adjacent conformance tooling).
func WithXMLCoercion() Option {
	return func(c *config) { c.xmlCoercion = true }
}

// WithStrictMode makes the first parse error fatal (returned from
// ParseChunk/Completed instead of being recovered from).
func WithStrictMode() Option {
	return func(c *config) { c.strict = true }
}

// WithCollectErrors collects parse errors instead of discarding them;
// retrieve them via Errors() after Completed.
func WithCollectErrors() Option {
	return func(c *config) { c.collectErrors = true }
}

// WithScripting sets the scripting flag, which makes <noscript> parse as
// raw text the way a scripting-capable host would. The engine itself
// never executes scripts.
func WithScripting() Option {
	return func(c *config) { c.scripting = true }
}

// Create starts a new push-parseable engine instance.
func Create(opts ...Option) *Engine {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	topts := tokenizer.Options{}
	tok := tokenizer.NewStreaming(topts)
	if cfg.xmlCoercion {
		tok.SetXMLCoercion(true)
	}

	var tb *treebuilder.TreeBuilder
	if cfg.fragment != nil {
		tb = treebuilder.NewFragment(tok, cfg.fragment)
	} else {
		tb = treebuilder.New(tok)
	}
	if cfg.iframeSrcdoc {
		tb.SetIframeSrcdoc(true)
	}
	if cfg.scripting {
		tb.SetScriptingEnabled(true)
	}

	var streamOpts []inputstream.Option
	if cfg.encodingHint != "" {
		streamOpts = append(streamOpts, inputstream.WithEncodingHint(cfg.encodingHint))
	}

	return &Engine{
		cfg:    cfg,
		stream: inputstream.New(streamOpts...),
		tok:    tok,
		tb:     tb,
	}
}

// Destroy releases the engine's resources. Go's garbage collector already
// reclaims everything reachable only from the Engine once it is
// unreferenced; Destroy exists so callers following a C-style
// create/destroy lifecycle have an explicit release point, and
// so a future Sink implementation with non-GC resources (file handles, a
// pooled allocator) has somewhere to hook in.
func (e *Engine) Destroy() {}

// SetOption applies an Option after Create. Strict mode and collect-errors
// are read on every ParseChunk/Completed, so they take effect from the next
// call. The encoding hint is only read by Create, so setting it here does
// not change the input stream. XML coercion, the fragment context,
// scripting and iframe srcdoc are read by Create and again only when a
// charset change restarts the tokenizer and tree builder.
func (e *Engine) SetOption(opts ...Option) {
	for _, opt := range opts {
		opt(&e.cfg)
	}
}

// ParseChunk feeds the next chunk of raw bytes into the engine and drives
// the tokenizer/tree builder as far as the currently buffered, decoded
// characters allow. It returns a KindEncodingChange error if this chunk
// triggered a tentative-state charset restart (the engine has already
// replayed everything seen so far internally; the caller does not need to
// resubmit earlier chunks).
func (e *Engine) ParseChunk(data []byte) error {
	if e.completed {
		return &Error{Kind: KindParam, Message: "engine: ParseChunk called after Completed"}
	}
	if e.paused {
		return &Error{Kind: KindPaused, Message: "engine: ParseChunk called while paused"}
	}

	_, beforeConfidence := e.stream.ReadCharset()
	e.stream.Append(data)
	_, afterConfidence := e.stream.ReadCharset()

	restarted := beforeConfidence != inputstream.Unknown &&
		(afterConfidence == inputstream.Certain || afterConfidence == inputstream.Confident) &&
		beforeConfidence != afterConfidence
	if restarted {
		e.restart()
	}

	if e.drain() {
		restarted = true
	}

	if restarted {
		return &Error{Kind: KindEncodingChange, Message: "engine: charset confidence change restarted the parse"}
	}
	return e.checkStrict()
}

// ParseExtraneousChunk inserts script-produced text at the tokenizer's
// current read point (WHATWG's document.write re-entrancy), rather than
// appending it to the end of the stream like ParseChunk.
func (e *Engine) ParseExtraneousChunk(text string) error {
	if e.completed {
		return &Error{Kind: KindParam, Message: "engine: ParseExtraneousChunk called after Completed"}
	}
	e.stream.Insert(text)
	e.drain()
	return e.checkStrict()
}

// applyPendingCharsetChange picks up a charset label the tree builder
// recorded from a <meta> tag during the last drain and attempts
// inputstream.ChangeCharset with it, restarting the tokenizer/tree builder
// on success (WHATWG §13.2.3.3 "change the encoding", triggered at tree-
// construction time rather than only during the pre-parse prescan).
func (e *Engine) applyPendingCharsetChange() bool {
	label, ok := e.tb.PendingCharsetChange()
	if !ok {
		return false
	}
	if !e.stream.ChangeCharset(label) {
		return false
	}
	e.restart()
	return true
}

// Pause suspends ParseChunk/Completed processing, for a sink that needs to
// block the parser while an inserted script runs synchronously. The engine
// never pauses itself; this hook exists for script-insertion callers.
func (e *Engine) Pause() { e.paused = true }

// Resume lifts a Pause.
func (e *Engine) Resume() { e.paused = false }

// Completed signals that no more bytes will arrive; it drains the input
// stream and tokenizer to a true EOF and finishes tree construction.
func (e *Engine) Completed() error {
	if e.paused {
		return &Error{Kind: KindPaused, Message: "engine: Completed called while paused"}
	}
	e.stream.Completed()
	e.completed = true
	e.tok.Completed()
	e.drain()
	return e.checkStrict()
}

// drain feeds every pending decoded character to the tokenizer and
// processes every token the tokenizer can produce until it suspends
// (NeedsData) or the tree builder has consumed an EOF. It reports whether a
// <meta charset> encountered along the way triggered an encoding restart, in
// which case it has already re-entered itself to keep draining under the new
// charset before returning.
func (e *Engine) drain() bool {
	pending := e.stream.Pending()
	if pending != "" {
		e.tok.Grow(pending)
		e.stream.ConsumePending()
	}

	for {
		e.tok.SetAllowCDATA(e.tb.AllowCDATA())
		tt := e.tok.Next()
		switch tt.Type {
		case tokenizer.NeedsData:
			return false
		case tokenizer.EOF:
			e.tb.ProcessToken(tt)
			if e.applyPendingCharsetChange() {
				e.drain()
				return true
			}
			return false
		default:
			e.tb.ProcessToken(tt)
			if e.applyPendingCharsetChange() {
				e.drain()
				return true
			}
		}
	}
}

// restart rebuilds the tokenizer and tree builder from scratch and re-feeds
// everything the input stream has decoded so far under its new charset.
// A charset change while still tentative resets the tokenizer and tree
// builder and re-feeds the buffered bytes under the new decoder.
func (e *Engine) restart() {
	topts := tokenizer.Options{}
	tok := tokenizer.NewStreaming(topts)
	if e.cfg.xmlCoercion {
		tok.SetXMLCoercion(true)
	}

	var tb *treebuilder.TreeBuilder
	if e.cfg.fragment != nil {
		tb = treebuilder.NewFragment(tok, e.cfg.fragment)
	} else {
		tb = treebuilder.New(tok)
	}
	if e.cfg.iframeSrcdoc {
		tb.SetIframeSrcdoc(true)
	}
	if e.cfg.scripting {
		tb.SetScriptingEnabled(true)
	}

	e.tok = tok
	e.tb = tb
}

func (e *Engine) checkStrict() error {
	if !e.cfg.strict && !e.cfg.collectErrors {
		return nil
	}
	errs := convertTokenizerErrors(e.tok.Errors())
	if len(errs) == 0 {
		return nil
	}
	if e.cfg.strict {
		return &Error{Kind: KindParseErr, Message: errs[0].Error(), Errs: htmlerrors.ParseErrors{errs[0]}}
	}
	return &Error{Kind: KindParseErr, Message: "engine: parse errors collected", Errs: errs}
}

// Document returns the document constructed so far. Valid at any point,
// including before Completed, for callers that want to observe partial
// progress.
func (e *Engine) Document() *dom.Document {
	return e.tb.Document()
}

// FragmentNodes returns the fragment's top-level element children, for
// engines created with WithFragment/WithFragmentNS.
func (e *Engine) FragmentNodes() []*dom.Element {
	return e.tb.FragmentNodes()
}

// ReadCharset reports the engine's currently detected encoding and
// confidence level.
func (e *Engine) ReadCharset() (name string, confidence inputstream.Confidence) {
	return e.stream.ReadCharset()
}

// ClaimBuffer transfers ownership of every raw byte the input stream has
// received so far (including bytes already decoded) to the caller. The
// Engine must not be used
// for further parsing afterward.
func (e *Engine) ClaimBuffer() []byte {
	return e.stream.ClaimBuffer()
}

// Errors returns the tokenizer's parse errors recorded so far. They are
// recorded whether or not WithCollectErrors was set; that option only
// decides whether ParseChunk/Completed report them as an error.
func (e *Engine) Errors() []*htmlerrors.ParseError {
	return convertTokenizerErrors(e.tok.Errors())
}

func convertTokenizerErrors(errs []tokenizer.ParseError) []*htmlerrors.ParseError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]*htmlerrors.ParseError, 0, len(errs))
	for _, e := range errs {
		out = append(out, &htmlerrors.ParseError{
			Code:    e.Code,
			Message: e.Message,
			Line:    e.Line,
			Column:  e.Column,
		})
	}
	return out
}
