package canvasrenderer

import (
	"testing"

	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
)

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer("")
	m, err := r.MeasurerFor(layout.FontResource{Name: "Body", Src: fonts.Regular})
	if err != nil {
		t.Fatalf("MeasurerFor error: %v", err)
	}
	const size = 24.0
	engine := richtext.New(richtext.Options{})

	first := "SAMPLE-A"
	limit := m.Measure(first, richtext.KindText, size)
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}

	tokens, err := engine.Tokenize(first+"\n"+"SAMPLE-B", m, size)
	if err != nil || !tokens.OK() {
		t.Fatalf("Tokenize error: %v %v", err, tokens.Fault)
	}
	block, err := engine.Wrap(tokens.Segments, limit, m, size)
	if err != nil || !block.OK() {
		t.Fatalf("Wrap error: %v %v", err, block.Fault)
	}
	if got := len(block.Lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d", got)
	}
	if got := block.Lines[0].Text(); got != first {
		t.Fatalf("first line mismatch: got=%q want=%q", got, first)
	}
	if got := block.Lines[1].Text(); got != "SAMPLE-B" {
		t.Fatalf("second line mismatch: got=%q want=%q", got, "SAMPLE-B")
	}
}
