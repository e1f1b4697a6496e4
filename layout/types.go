package layout

import (
	"sort"

	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/richtext"
)

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均以像素为单位，原点在卡片左上角。

// Result 保存布局后的卡片与资源信息。
type Result struct {
	Cards     []Card       `json:"cards"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与图片定义。
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Colors map[string]Color         `json:"colors"`
	Images map[string]ImageResource `json:"images"`
	Styles map[string]Style         `json:"styles"`
}

// FontResource 描述一个字体族，各字形变体可分别指定来源，缺省的粗体与斜体使用本字族的常规字形。
type FontResource struct {
	Name       string `json:"name"`
	Src        string `json:"src"`
	Bold       string `json:"bold,omitempty"`
	Italic     string `json:"italic,omitempty"`
	BoldItalic string `json:"boldItalic,omitempty"`
	Mono       string `json:"mono,omitempty"`
}

// Set 把字体资源转换为按字形变体取源的 fonts.Set。
func (f FontResource) Set() fonts.Set {
	return fonts.Set{Regular: f.Src, Bold: f.Bold, Italic: f.Italic, BoldItalic: f.BoldItalic, Mono: f.Mono}
}

// ImageResource 记录图片资源，src 可以包含 ${...} 占位符。
type ImageResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// Color 采用 0-255 的 RGBA 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a"`
}

// Card 记录一张卡片的尺寸与按绘制顺序编号的元素。
type Card struct {
	Name       string     `json:"name"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background *Color     `json:"background,omitempty"`
	Texts      []TextBox  `json:"texts"`
	Images     []ImageBox `json:"images"`
	Lines      []Line     `json:"lines,omitempty"`
	Rects      []Rect     `json:"rects,omitempty"`
	Circles    []Circle   `json:"circles,omitempty"`
}

// Paint 是按绘制顺序展开后的单个元素，只有一个字段非空。
type Paint struct {
	Order  int
	Text   *TextBox
	Image  *ImageBox
	Line   *Line
	Rect   *Rect
	Circle *Circle
}

// Paints 返回卡片全部元素，按 DSL 中的语句顺序排列。
func (c *Card) Paints() []Paint {
	out := make([]Paint, 0, len(c.Texts)+len(c.Images)+len(c.Lines)+len(c.Rects)+len(c.Circles))
	for i := range c.Texts {
		out = append(out, Paint{Order: c.Texts[i].Order, Text: &c.Texts[i]})
	}
	for i := range c.Images {
		out = append(out, Paint{Order: c.Images[i].Order, Image: &c.Images[i]})
	}
	for i := range c.Lines {
		out = append(out, Paint{Order: c.Lines[i].Order, Line: &c.Lines[i]})
	}
	for i := range c.Rects {
		out = append(out, Paint{Order: c.Rects[i].Order, Rect: &c.Rects[i]})
	}
	for i := range c.Circles {
		out = append(out, Paint{Order: c.Circles[i].Order, Circle: &c.Circles[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// EmojiKeys 返回卡片文本中出现的全部 emoji 键（去重，按出现顺序）。
func (c *Card) EmojiKeys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, tb := range c.Texts {
		for _, ln := range tb.Lines {
			for _, seg := range ln.Segments {
				if seg.Kind != richtext.KindEmoji || seen[seg.Content] {
					continue
				}
				seen[seg.Content] = true
				keys = append(keys, seg.Content)
			}
		}
	}
	return keys
}

// TextBox 表示一个已经排好坐标的富文本块。
type TextBox struct {
	Content     string        `json:"content"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
	Font        string        `json:"font"`
	FontSize    float64       `json:"fontSize"`
	LineHeight  float64       `json:"lineHeight"`
	Color       Color         `json:"color"`
	Align       string        `json:"align,omitempty"`  // left/center/right
	VAlign      string        `json:"valign,omitempty"` // top/middle/bottom
	StrikeWidth float64       `json:"strikeWidth"`
	Tracking    float64       `json:"tracking,omitempty"` // 片段之间的额外间距
	Hug         bool          `json:"hug,omitempty"`      // 外框贴合最宽的一行
	Outline     *Outline      `json:"outline,omitempty"`
	Shadow      *Shadow       `json:"shadow,omitempty"`
	Backdrop    *Rect         `json:"backdrop,omitempty"`
	Highlights  []Rect        `json:"highlights,omitempty"`
	Lines       []TextLine    `json:"lines"`
	Fitted      bool          `json:"fitted,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	Fault       string        `json:"fault,omitempty"`
	Order       int           `json:"order"`
	Debug       *TextBoxDebug `json:"debug,omitempty"`
}

// ContentHeight 返回全部行占用的高度。
func (tb TextBox) ContentHeight() float64 {
	return float64(len(tb.Lines)) * tb.LineHeight
}

// TextLine 表示排版后的一行，X/Y 为行框左上角。
type TextLine struct {
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Segments richtext.Line `json:"segments"`
}

// Outline 描边文字（例如表情包字幕）。
type Outline struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// Shadow 在文字下方偏移绘制一层阴影。
type Shadow struct {
	Color Color   `json:"color"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by BuildOptions.
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits describes original author-specified units for key fields.
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

// RawLengthJSON is a JSON-friendly representation of Length.
type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RawLineHeightJSON is a JSON-friendly representation of LineHeightSpec.
type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// ImageBox 用于描述图片位置与尺寸。
type ImageBox struct {
	Path    string  `json:"path"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Fit     string  `json:"fit"`            // stretch/cover/contain
	Mask    string  `json:"mask,omitempty"` // circle
	Opacity float64 `json:"opacity"`
	Order   int     `json:"order"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // <=0 时由渲染器给默认值
	Order int     `json:"order"`
}

// Rect 表示一个矩形，Radius 大于 0 时为圆角矩形。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Radius      float64 `json:"radius,omitempty"`
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示不描边
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
	Order       int     `json:"order"`
}

// Circle 表示一个圆。
type Circle struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	StrokeColor *Color  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FillColor   *Color  `json:"fillColor,omitempty"`
	Order       int     `json:"order"`
}

// Style 用于描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存文档元信息，PDF 输出时写入文档属性。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
