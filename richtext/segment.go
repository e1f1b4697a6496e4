package richtext

import (
	"fmt"
	"strings"
)

// Kind 标识片段的渲染方式。
type Kind int

const (
	KindText Kind = iota
	KindWhitespace
	KindBold
	KindItalic
	KindBoldItalic
	KindMonospace
	KindStrikethrough
	KindEmoji
	KindNewline
)

var kindNames = [...]string{
	KindText:          "text",
	KindWhitespace:    "whitespace",
	KindBold:          "bold",
	KindItalic:        "italic",
	KindBoldItalic:    "bolditalic",
	KindMonospace:     "monospace",
	KindStrikethrough: "strikethrough",
	KindEmoji:         "emoji",
	KindNewline:       "newline",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText 让调试 JSON 输出可读的类型名。
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	name := string(b)
	for i, n := range kindNames {
		if n == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("未知的片段类型：%s", name)
}

// ParseKind is the string form of UnmarshalText.
func ParseKind(name string) (Kind, error) {
	var k Kind
	err := k.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name))))
	return k, err
}

// Segment 是具有单一渲染方式的最小文本单元。
// Width 仅对测量时使用的 (Kind, fontSize) 有效，字号变化后必须重新测量。
type Segment struct {
	Kind    Kind    `json:"kind"`
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// Line 是一行内按顺序排列的片段，不包含换行片段。
type Line []Segment

// Width returns the summed width of the line's segments.
func (l Line) Width() float64 {
	total := 0.0
	for _, s := range l {
		total += s.Width
	}
	return total
}

// Text concatenates segment contents; emoji contribute their glyph key.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Content)
	}
	return b.String()
}
