// Package parser provides a pure Go HTML5 parsing engine implementing
// the WHATWG HTML5 tree-construction algorithm.
//
// It parses malformed HTML exactly as browsers do: it never aborts
// on bad markup, recovering according to the rules the HTML5 specification
// prescribes for every parse error.
//
// # Basic Usage
//
//	doc, err := parser.Parse("<html><body><p>Hello!</p></body></html>")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(doc.Body().Text())
//
// # Push parsing
//
// Parse and ParseBytes are one-shot conveniences over the engine package,
// which exposes the full create/push-chunk/complete lifecycle for
// callers that receive HTML incrementally (a network response body, a
// document.write call). Use engine.Create directly when chunk-by-chunk
// delivery matters; Parse always feeds the whole input as a single chunk.
//
// # Features
//
//   - WHATWG HTML5 Living Standard tree construction, including the
//     adoption agency algorithm and foster parenting
//   - Encoding auto-detection (BOM, client hint, meta-tag sniffing,
//     windows-1252 default) via the encoding and inputstream packages
//   - Fragment parsing for innerHTML-style use cases
//   - Streaming/push parsing via the engine package
package parser

import (
	"github.com/htmlcore/parser/dom"
	htmlerrors "github.com/htmlcore/parser/errors"
	"github.com/htmlcore/parser/engine"
)

// Version is the current version of the library.
const Version = "0.1.0-dev"

// Parse parses an HTML string and returns a Document.
//
// The parser handles malformed HTML according to the WHATWG HTML5
// specification, ensuring the same recovery behavior as a browser.
//
// Example:
//
//	doc, err := parser.Parse("<html><body><p>Hello!</p></body></html>")
//	if err != nil {
//		// err is non-nil only under WithStrictMode/WithCollectErrors
//	}
func Parse(html string, opts ...Option) (*dom.Document, error) {
	cfg := newConfig(opts...)
	return parse(html, cfg)
}

// ParseBytes parses HTML from a byte slice with automatic encoding
// detection.
//
// The encoding is detected according to the HTML5 specification:
//  1. BOM (Byte Order Mark)
//  2. A client-declared encoding (WithEncoding)
//  3. <meta charset> or <meta http-equiv="Content-Type">
//  4. Fallback to windows-1252
//
// Example:
//
//	data, _ := os.ReadFile("page.html")
//	doc, err := parser.ParseBytes(data)
func ParseBytes(html []byte, opts ...Option) (*dom.Document, error) {
	cfg := newConfig(opts...)
	return parseBytes(html, cfg)
}

// ParseFragment parses an HTML fragment in a specific context element.
//
// This is equivalent to setting element.innerHTML in browsers. The context
// determines how the fragment is parsed (e.g., parsing "<td>" in a "tr"
// context vs. in a "div" context produces different results).
//
// Example:
//
//	nodes, err := parser.ParseFragment("<td>Cell</td>", "tr")
func ParseFragment(html string, context string, opts ...Option) ([]*dom.Element, error) {
	opts = append(opts, WithFragment(context))
	cfg := newConfig(opts...)
	return parseFragment(html, cfg)
}

// parse is the internal one-shot string parsing implementation: it builds
// an engine.Engine, feeds it the whole input as a single ParseChunk, and
// signals Completed.
func parse(html string, cfg *config) (*dom.Document, error) {
	e := newEngine(cfg)
	if err := e.ParseChunk([]byte(html)); err != nil {
		if perr := asParamError(err); perr != nil {
			return nil, perr
		}
	}
	return finishDocument(e, cfg)
}

// parseBytes decodes html per the engine's staged charset detection
// (inputstream) and drives the same one-shot loop as parse.
func parseBytes(html []byte, cfg *config) (*dom.Document, error) {
	e := newEngine(cfg)
	if err := e.ParseChunk(html); err != nil {
		if perr := asParamError(err); perr != nil {
			return nil, perr
		}
	}
	return finishDocument(e, cfg)
}

// parseFragment is the internal fragment parsing implementation.
func parseFragment(html string, cfg *config) ([]*dom.Element, error) {
	e := newEngine(cfg)
	if err := e.ParseChunk([]byte(html)); err != nil {
		if perr := asParamError(err); perr != nil {
			return nil, perr
		}
	}
	if err := e.Completed(); err != nil {
		if perr, ok := asStrictOrCollectError(err, cfg); ok {
			return e.FragmentNodes(), perr
		}
	}
	return e.FragmentNodes(), nil
}

// newEngine builds an engine.Engine from a root-package config.
func newEngine(cfg *config) *engine.Engine {
	var opts []engine.Option
	if cfg.encoding != "" {
		opts = append(opts, engine.WithEncoding(cfg.encoding))
	}
	if cfg.fragmentContext != nil {
		opts = append(opts, engine.WithFragmentNS(cfg.fragmentContext.TagName, cfg.fragmentContext.Namespace))
	}
	if cfg.iframeSrcdoc {
		opts = append(opts, engine.WithIframeSrcdoc())
	}
	if cfg.xmlCoercion {
		opts = append(opts, engine.WithXMLCoercion())
	}
	if cfg.scripting {
		opts = append(opts, engine.WithScripting())
	}
	if cfg.strict {
		opts = append(opts, engine.WithStrictMode())
	}
	if cfg.collectErrors {
		opts = append(opts, engine.WithCollectErrors())
	}
	return engine.Create(opts...)
}

func finishDocument(e *engine.Engine, cfg *config) (*dom.Document, error) {
	err := e.Completed()
	if err == nil {
		return e.Document(), nil
	}
	if perr, ok := asStrictOrCollectError(err, cfg); ok {
		return e.Document(), perr
	}
	return e.Document(), nil
}

// asParamError surfaces a KindParam engine error (an invalid argument at
// the API boundary) as a Go error; any other engine error kind
// from ParseChunk (encoding restarts, parse-error collection) is handled
// at Completed time instead, since both are recoverable mid-parse.
func asParamError(err error) error {
	eerr, ok := err.(*engine.Error)
	if ok && eerr.Kind == engine.KindParam {
		return eerr
	}
	return nil
}

// asStrictOrCollectError converts a KindParseErr engine error into the
// error value Parse/ParseBytes/ParseFragment return, per cfg.strict /
// cfg.collectErrors. Parse errors are swallowed unless the caller
// explicitly opted into strict or collect-errors mode.
func asStrictOrCollectError(err error, cfg *config) (error, bool) {
	eerr, ok := err.(*engine.Error)
	if !ok || eerr.Kind != engine.KindParseErr {
		return nil, false
	}
	if cfg.strict {
		return eerr.Errs[0], true
	}
	if cfg.collectErrors {
		return htmlerrors.ParseErrors(eerr.Errs), true
	}
	return nil, false
}
