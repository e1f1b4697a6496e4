package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
)

// sfntTypesetter 用 sfnt 字形度量排版，不创建画布，供 -dry-run 使用。
type sfntTypesetter struct {
	images interface {
		ImageSize(string) (int, int, error)
	}
	baseDir string
}

func (s sfntTypesetter) MeasurerFor(font layout.FontResource) (richtext.Measurer, error) {
	m := fonts.NewFaceMeasurer(font.Set(), s.baseDir)
	m.Measure(" ", richtext.KindText, 12)
	if err := m.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s sfntTypesetter) ImageSize(src string) (int, int, error) { return s.images.ImageSize(src) }

// printLayout 逐卡片打印文本块的字号与折行结果，片段以 [类型] 标注。
func printLayout(w io.Writer, result *layout.Result) {
	for _, card := range result.Cards {
		fmt.Fprintf(w, "card %s %gx%g\n", card.Name, card.Width, card.Height)
		for i, tb := range card.Texts {
			fmt.Fprintf(w, "  text #%d at (%g, %g) size %g line-height %g", i, tb.X, tb.Y, tb.FontSize, tb.LineHeight)
			if tb.Attempts > 0 {
				fmt.Fprintf(w, " fitted=%t attempts=%d", tb.Fitted, tb.Attempts)
			}
			if tb.Fault != "" {
				fmt.Fprintf(w, " fault=%q", tb.Fault)
			}
			fmt.Fprintln(w)
			for _, ln := range tb.Lines {
				fmt.Fprintf(w, "    %7.1f | %s\n", ln.Width, describeLine(ln.Segments))
			}
		}
	}
}

func describeLine(line richtext.Line) string {
	var b strings.Builder
	for _, seg := range line {
		switch seg.Kind {
		case richtext.KindText, richtext.KindWhitespace:
			b.WriteString(seg.Content)
		default:
			fmt.Fprintf(&b, "[%s]%s", seg.Kind, seg.Content)
		}
	}
	return b.String()
}
