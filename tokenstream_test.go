package parser

import "testing"

func TestStreamTokens(t *testing.T) {
	var events []TokenEvent
	for ev := range StreamTokens("<p class=\"a\">hi</p>") {
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 token events, got %d: %#v", len(events), events)
	}
	if events[0].Type != StartTagToken || events[0].Name != "p" {
		t.Errorf("events[0] = %#v, want StartTagToken p", events[0])
	}
	if events[0].Attrs["class"] != "a" {
		t.Errorf("events[0].Attrs[class] = %q, want %q", events[0].Attrs["class"], "a")
	}
	if events[1].Type != TextToken || events[1].Data != "hi" {
		t.Errorf("events[1] = %#v, want TextToken hi", events[1])
	}
	if events[2].Type != EndTagToken || events[2].Name != "p" {
		t.Errorf("events[2] = %#v, want EndTagToken p", events[2])
	}
}

func TestStreamTokensBytesWithEncoding(t *testing.T) {
	var events []TokenEvent
	for ev := range StreamTokensBytes([]byte("<div>x</div>"), WithTokenEncoding("utf-8")) {
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 token events, got %d: %#v", len(events), events)
	}
}
