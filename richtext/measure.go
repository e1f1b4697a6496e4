package richtext

// Measurer 返回文本在指定样式与字号下的渲染宽度。
// 实现必须是确定性的，并与最终绘制文字所用的光栅化器一致。
type Measurer interface {
	Measure(text string, kind Kind, fontSize float64) float64
}

// MeasureFunc adapts an ordinary function to the Measurer interface.
type MeasureFunc func(text string, kind Kind, fontSize float64) float64

func (f MeasureFunc) Measure(text string, kind Kind, fontSize float64) float64 {
	return f(text, kind, fontSize)
}

// Span 标记一行中一个 emoji 序列的位置（字节偏移）及其字形键。
type Span struct {
	Offset int
	Length int
	Key    string
}

// EmojiLocator finds emoji sequences in a single line of plain text.
// Spans must be ordered by Offset and must not overlap.
type EmojiLocator interface {
	Locate(line string) []Span
}

// LocatorFunc adapts a function to EmojiLocator.
type LocatorFunc func(line string) []Span

func (f LocatorFunc) Locate(line string) []Span { return f(line) }

func usable(m Measurer) bool {
	if m == nil {
		return false
	}
	if f, ok := m.(MeasureFunc); ok && f == nil {
		return false
	}
	return true
}
