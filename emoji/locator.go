// Package emoji 定位文本中的 emoji 字符并加载对应的字形图片。
package emoji

import (
	"sort"

	"github.com/rivo/uniseg"

	"github.com/ByLCY/inkcard/richtext"
)

const (
	zwj          = 0x200D
	vs16         = 0xFE0F
	keycap       = 0x20E3
	regionalLow  = 0x1F1E6
	regionalHigh = 0x1F1FF
)

// Locator 按用户感知字符（字素簇）扫描一行文本，返回其中的 emoji 区间。
// 区间的 Key 即该字素簇的原文。
type Locator struct{}

var _ richtext.EmojiLocator = Locator{}

// Locate 实现 richtext.EmojiLocator。
func (Locator) Locate(line string) []richtext.Span {
	var spans []richtext.Span
	gr := uniseg.NewGraphemes(line)
	for gr.Next() {
		if !IsEmoji(gr.Runes()) {
			continue
		}
		from, to := gr.Positions()
		spans = append(spans, richtext.Span{Offset: from, Length: to - from, Key: gr.Str()})
	}
	return spans
}

// IsEmoji 判断一个字素簇是否应当按 emoji 图片绘制。
func IsEmoji(cluster []rune) bool {
	if len(cluster) == 0 {
		return false
	}
	first := cluster[0]
	switch {
	case first >= regionalLow && first <= regionalHigh:
		return len(cluster) == 2
	case isKeycapBase(first):
		return len(cluster) > 1 && cluster[len(cluster)-1] == keycap
	case len(cluster) > 1 && cluster[1] == vs16:
		return true
	}
	return pictographic(first)
}

func isKeycapBase(r rune) bool {
	return r == '#' || r == '*' || (r >= '0' && r <= '9')
}

// presentation 列出默认以 emoji 形式显示的码点区间，按起点升序。
var presentation = []struct{ lo, hi rune }{
	{0x231A, 0x231B}, {0x23E9, 0x23EC}, {0x23F0, 0x23F0}, {0x23F3, 0x23F3},
	{0x25FD, 0x25FE}, {0x2614, 0x2615}, {0x2648, 0x2653}, {0x267F, 0x267F},
	{0x2693, 0x2693}, {0x26A1, 0x26A1}, {0x26AA, 0x26AB}, {0x26BD, 0x26BE},
	{0x26C4, 0x26C5}, {0x26CE, 0x26CE}, {0x26D4, 0x26D4}, {0x26EA, 0x26EA},
	{0x26F2, 0x26F3}, {0x26F5, 0x26F5}, {0x26FA, 0x26FA}, {0x26FD, 0x26FD},
	{0x2705, 0x2705}, {0x270A, 0x270B}, {0x2728, 0x2728}, {0x274C, 0x274C},
	{0x274E, 0x274E}, {0x2753, 0x2755}, {0x2757, 0x2757}, {0x2795, 0x2797},
	{0x27B0, 0x27B0}, {0x27BF, 0x27BF}, {0x2B1B, 0x2B1C}, {0x2B50, 0x2B50},
	{0x2B55, 0x2B55}, {0x1F004, 0x1F004}, {0x1F0CF, 0x1F0CF}, {0x1F18E, 0x1F18E},
	{0x1F191, 0x1F19A}, {0x1F201, 0x1F202}, {0x1F21A, 0x1F21A}, {0x1F22F, 0x1F22F},
	{0x1F232, 0x1F23A}, {0x1F250, 0x1F251}, {0x1F300, 0x1F64F}, {0x1F680, 0x1F6FF},
	{0x1F7E0, 0x1F7EB}, {0x1F7F0, 0x1F7F0}, {0x1F90C, 0x1F9FF}, {0x1FA70, 0x1FAFF},
}

func pictographic(r rune) bool {
	i := sort.Search(len(presentation), func(i int) bool { return presentation[i].hi >= r })
	return i < len(presentation) && presentation[i].lo <= r
}
