package richtext_test

import (
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/inkcard/richtext"
)

// halfEm 每个字符宽度为字号的一半，与样式无关。
var halfEm = richtext.MeasureFunc(func(s string, _ richtext.Kind, size float64) float64 {
	return float64(utf8.RuneCountInString(s)) * size / 2
})

// fixedLocator 在行内查找固定的 emoji 字符串。
func fixedLocator(glyphs ...string) richtext.EmojiLocator {
	return richtext.LocatorFunc(func(line string) []richtext.Span {
		var spans []richtext.Span
		for pos := 0; pos < len(line); {
			best, bestLen := -1, 0
			for _, g := range glyphs {
				if i := strings.Index(line[pos:], g); i >= 0 && (best < 0 || i < best) {
					best, bestLen = i, len(g)
				}
			}
			if best < 0 {
				break
			}
			spans = append(spans, richtext.Span{Offset: pos + best, Length: bestLen, Key: line[pos+best : pos+best+bestLen]})
			pos += best + bestLen
		}
		return spans
	})
}

func quietEngine(opts richtext.Options) *richtext.Engine {
	opts.Logger = log.New(io.Discard, "", 0)
	return richtext.New(opts)
}

func seg(kind richtext.Kind, content string, width float64) richtext.Segment {
	return richtext.Segment{Kind: kind, Content: content, Width: width}
}

func text(content string) richtext.Segment {
	return seg(richtext.KindText, content, float64(utf8.RuneCountInString(content))*5)
}

func space() richtext.Segment { return seg(richtext.KindWhitespace, " ", 5) }

func newline() richtext.Segment { return seg(richtext.KindNewline, "\n", 0) }

func lineTexts(lines []richtext.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}
