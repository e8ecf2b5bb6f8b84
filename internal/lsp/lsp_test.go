package lsp

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDiagnosticsCleanProgram(t *testing.T) {
	if diags := Diagnostics("let x = 1;\noutput x;"); len(diags) != 0 {
		t.Errorf("clean program produced diagnostics: %v", diags)
	}
}

func TestDiagnosticsParseError(t *testing.T) {
	diags := Diagnostics("let = 1;")
	if len(diags) == 0 {
		t.Fatal("no diagnostics for a parse error")
	}
	if diags[0].Message == "" {
		t.Errorf("empty message")
	}
}

func TestDiagnosticsPositionIsZeroBased(t *testing.T) {
	diags := Diagnostics("let x = 1;\nbreak;")
	if len(diags) == 0 {
		t.Fatal("no diagnostics for break outside loop")
	}
	if diags[0].Range.Start.Line != 1 {
		t.Errorf("line: got %d, want 1 (zero-based second line)", diags[0].Range.Start.Line)
	}
}

func TestDiagnosticsReportsMultiple(t *testing.T) {
	diags := Diagnostics("break;\ncontinue;")
	if len(diags) < 2 {
		t.Errorf("got %d diagnostics, want 2", len(diags))
	}
}

func TestCompletionsKeywords(t *testing.T) {
	items := Completions("", "whi")
	if len(items) != 1 || items[0].Label != "while" {
		t.Errorf("got %v", items)
	}
}

func TestCompletionsDeclarations(t *testing.T) {
	doc := "fn render(x) { return x; }\nlet result = 1;\n"
	items := Completions(doc, "re")
	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	want := map[string]bool{"return": false, "render": false, "result": false}
	for _, label := range labels {
		if _, ok := want[label]; ok {
			want[label] = true
		}
	}
	for label, seen := range want {
		if !seen {
			t.Errorf("completion %q missing from %v", label, labels)
		}
	}
}

func TestCompletionsSurviveParseErrors(t *testing.T) {
	doc := "fn render(x) { return x; }\nlet = broken;\n"
	items := Completions(doc, "ren")
	found := false
	for _, item := range items {
		if item.Label == "render" {
			found = true
		}
	}
	if !found {
		t.Errorf("declared function lost on parse error: %v", items)
	}
}

func TestExtractPrefix(t *testing.T) {
	pos := protocol.Position{Line: 0, Character: 10}
	if got := extractPrefix("output foo", pos); got != "foo" {
		t.Errorf("got %q, want foo", got)
	}
	pos = protocol.Position{Line: 0, Character: 4}
	if got := extractPrefix("x + ", pos); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
