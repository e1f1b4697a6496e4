package richtext

import (
	"fmt"
	"math"

	"github.com/rivo/uniseg"
)

// Wrap 把片段贪心地装入不超过 maxWidth 的行。
//
// 换行片段总是结束当前行；超宽的非 emoji 片段按字符拆分；
// 新行开头的空白被丢弃；emoji 永不拆分，即使单个字形已超出宽度。
// maxWidth 非正时不限制宽度，只按显式换行分行。
func (e *Engine) Wrap(segs []Segment, maxWidth float64, m Measurer, fontSize float64) (Block, error) {
	if !usable(m) {
		return Block{}, ErrNoMeasurer
	}
	lines, err := e.wrap(segs, maxWidth, m, fontSize)
	if err != nil {
		e.logf("折行失败: %v", err)
		return Block{Lines: []Line{{}}, Fault: err}, nil
	}
	return Block{Lines: lines}, nil
}

func (e *Engine) wrap(segs []Segment, maxWidth float64, m Measurer, fontSize float64) (lines []Line, err error) {
	defer recoverFault("wrap", &err)

	limit := maxWidth
	if !(limit > 0) {
		limit = math.Inf(1)
	}
	w := &wrapper{limit: limit, g: &gauge{m: m, size: fontSize}, cur: Line{}}
	for i := 0; i < len(segs); i++ {
		s := segs[i]
		switch {
		case s.Kind == KindNewline:
			w.closeLine()
		case s.Width > limit && s.Kind != KindEmoji:
			if !validSize(fontSize) {
				return nil, fmt.Errorf("%w: 拆分超宽片段需要有效字号，得到 %g", ErrInvalidInput, fontSize)
			}
			w.split(s)
		default:
			w.place(s)
		}
		if w.g.err != nil {
			return nil, w.g.err
		}
	}
	if len(w.cur) > 0 {
		w.closeLine()
	}
	return w.lines, nil
}

// wrapper 保存一次折行过程中的当前行与累计宽度。
type wrapper struct {
	lines    []Line
	cur      Line
	curWidth float64
	limit    float64
	g        *gauge
}

func (w *wrapper) closeLine() {
	w.lines = append(w.lines, w.cur)
	w.cur = Line{}
	w.curWidth = 0
}

func (w *wrapper) place(s Segment) {
	if len(w.cur) > 0 && w.curWidth+s.Width > w.limit {
		w.closeLine()
	}
	if s.Kind == KindWhitespace && len(w.cur) == 0 {
		return
	}
	w.cur = append(w.cur, s)
	w.curWidth += s.Width
}

// split breaks an over-wide segment at grapheme boundaries. Full chunks become
// one-segment lines; the remainder seeds the current line.
func (w *wrapper) split(s Segment) {
	if len(w.cur) > 0 {
		w.closeLine()
	}
	chunk := ""
	gr := uniseg.NewGraphemes(s.Content)
	for gr.Next() {
		ch := gr.Str()
		if chunk != "" && w.g.width(chunk+ch, s.Kind) > w.limit {
			w.lines = append(w.lines, Line{{Kind: s.Kind, Content: chunk, Width: w.g.width(chunk, s.Kind)}})
			chunk = ch
			continue
		}
		chunk += ch
	}
	if chunk == "" {
		return
	}
	seed := Segment{Kind: s.Kind, Content: chunk, Width: w.g.width(chunk, s.Kind)}
	w.cur = Line{seed}
	w.curWidth = seed.Width
}
