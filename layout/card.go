package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/inkcard/binding"
	"github.com/ByLCY/inkcard/dsl"
	"github.com/ByLCY/inkcard/richtext"
)

const (
	defaultFontSize     = 24.0
	defaultOutlineWidth = 4.0
	defaultShadowOffset = 2.0
	defaultRuleWidth    = 1.0
)

// cardBuilder 逐条执行卡片语句。语句顺序即绘制顺序。
type cardBuilder struct {
	res       ResourceSet
	data      any
	opts      BuildOptions
	engine    *richtext.Engine
	measurers map[string]richtext.Measurer

	card   Card
	height float64 // 声明的卡片高度，负坐标与百分比以它为参照
	order  int
	grown  []growth

	frame frame      // 当前坐标参照框
	flow  *flowState // 非空时处于 stack 中，子元素依次向下排列
	last  *box       // 同一层中上一个元素的外框，float 元素以它为参照框
}

// growth 记录一个 grow 文本块的声明底边与实际增量，之后声明在其下方的元素整体平移。
type growth struct {
	bottom float64
	delta  float64
}

func (b *cardBuilder) build(sec *dsl.CardSection) (Card, error) {
	b.card = Card{Name: sec.Name}
	if err := b.header(sec); err != nil {
		return Card{}, err
	}
	if sec.Block == nil {
		return b.card, nil
	}
	if err := b.statements(sec.Block.Statements); err != nil {
		return Card{}, err
	}
	return b.card, nil
}

// header 解析 `card <name> [<width> <height>] [from <image>] [square]`。
// 省略尺寸时使用 from 图片的像素尺寸，square 把两边裁成较短的一边。
func (b *cardBuilder) header(sec *dsl.CardSection) error {
	var src string
	if sec.From != nil {
		src = b.imageSource(sec.From.String())
		if src == "" {
			return fmt.Errorf("背景图片 %s 没有来源", sec.From.String())
		}
	}

	var w, h float64
	switch {
	case sec.Size != nil:
		var err error
		if w, err = b.dimension(sec.Size.Width); err != nil {
			return err
		}
		if h, err = b.dimension(sec.Size.Height); err != nil {
			return err
		}
	case src != "":
		iw, ih, err := b.opts.Typesetter.ImageSize(src)
		if err != nil {
			return fmt.Errorf("读取背景图片尺寸失败: %w", err)
		}
		w, h = float64(iw), float64(ih)
	default:
		return fmt.Errorf("缺少卡片尺寸")
	}
	if sec.Square {
		side := math.Min(w, h)
		w, h = side, side
	}
	if !(w > 0) || !(h > 0) {
		return fmt.Errorf("卡片尺寸无效：%gx%g", w, h)
	}
	b.card.Width, b.card.Height = w, h
	b.height = h
	b.frame = frame{w: w, h: h, top: true}

	if src != "" {
		b.card.Images = append(b.card.Images, ImageBox{
			Path:    src,
			Width:   w,
			Height:  h,
			Fit:     "cover",
			Opacity: 1,
			Order:   b.next(),
		})
	}
	return nil
}

func (b *cardBuilder) dimension(d *dsl.Dimension) (float64, error) {
	v := binding.Interpolate(d.String(), b.data)
	l, ok := ParseLength(v)
	if !ok || l.Unit == UnitPercent {
		return 0, fmt.Errorf("无法识别的卡片尺寸：%s", v)
	}
	return l.Px(0), nil
}

func (b *cardBuilder) assign(a *dsl.Assignment) {
	switch strings.ToLower(a.Key) {
	case "background":
		v := binding.Interpolate(valueToString(a.Value), b.data)
		if v == "" {
			return
		}
		c := resolveColor(v, b.res)
		b.card.Background = &c
	}
}

func (b *cardBuilder) command(cmd *dsl.Command) error {
	switch cmd.Name {
	case "text":
		return b.text(cmd)
	case "image":
		return b.image(cmd)
	case "rect":
		b.rect(cmd)
	case "circle":
		b.circle(cmd)
	case "line":
		b.line(cmd)
	}
	return nil
}

func (b *cardBuilder) next() int {
	b.order++
	return b.order
}

// bind 对全部属性值做 ${...} 插值。
func (b *cardBuilder) bind(attrs map[string]string) map[string]string {
	for k, v := range attrs {
		attrs[k] = binding.Interpolate(v, b.data)
	}
	return attrs
}

// shift 返回声明坐标 y 经过此前 grow 文本块平移后的位置。
func (b *cardBuilder) shift(y float64) float64 {
	out := y
	for _, g := range b.grown {
		if y >= g.bottom {
			out += g.delta
		}
	}
	return out
}

// place 只对卡片顶层的元素应用 grow 平移；容器内的元素随容器整体移动。
func (b *cardBuilder) place(y float64) float64 {
	if !b.frame.top {
		return y
	}
	return b.shift(y)
}

func (b *cardBuilder) measurer(font FontResource) (richtext.Measurer, error) {
	if m, ok := b.measurers[font.Name]; ok {
		return m, nil
	}
	m, err := b.opts.Typesetter.MeasurerFor(font)
	if err != nil {
		return nil, fmt.Errorf("字体 %s 不可用: %w", font.Name, err)
	}
	b.measurers[font.Name] = m
	return m, nil
}

func (b *cardBuilder) imageSource(name string) string {
	if img, ok := b.res.Images[name]; ok {
		return binding.Interpolate(img.Src, b.data)
	}
	return binding.Interpolate(name, b.data)
}

// coord 解析坐标或尺寸：百分比以 extent 为参照，负值从远端起算。
func coord(attrs map[string]string, key string, extent float64) (float64, bool) {
	l, ok := ParseLength(attrs[key])
	if !ok {
		return 0, false
	}
	v := l.Px(extent)
	if v < 0 {
		v += extent
	}
	return v, true
}

func number(attrs map[string]string, key string, def float64) float64 {
	if l, ok := ParseLength(attrs[key]); ok {
		return l.Px(0)
	}
	return def
}

func truthy(v string) bool {
	ok, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && ok
}

func (b *cardBuilder) text(cmd *dsl.Command) error {
	style, inline := parseArgs(cmd.Args, true)
	attrs := b.bind(mergeStyleAttributes(style, inline, b.res.Styles))
	content := binding.Interpolate(extractText(cmd.Block), b.data)
	if v, ok := attrs["content"]; ok && content == "" {
		content = v
	}

	fontName := attrs["font"]
	if fontName == "" {
		fontName = style
	}
	fontRes, err := resolveFontResource(fontName, b.res)
	if err != nil {
		return err
	}
	m, err := b.measurer(fontRes)
	if err != nil {
		return err
	}

	f := b.frame
	x, _ := f.xOf(attrs, "x")
	y, _ := f.yOf(attrs, "y")
	width, ok := coord(attrs, "width", f.w)
	if !ok || width <= 0 {
		width = f.x + f.w - x
	}
	height, hasHeight := coord(attrs, "height", f.h)
	if height <= 0 {
		hasHeight = false
	}
	inset := math.Max(number(attrs, "inset", 0), 0)
	// 只有顶层文本块能撑高卡片，容器内的文本块由容器负责排列
	grow := truthy(attrs["grow"]) && f.top

	innerW := math.Max(width-2*inset, 0)
	innerH := 0.0
	if hasHeight && !grow {
		innerH = math.Max(height-2*inset, 0)
	}

	fontSize := number(attrs, "size", defaultFontSize)
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}

	tb := TextBox{
		Content: content,
		X:       x,
		Y:       b.place(y),
		Width:   width,
		Font:    fontRes.Name,
		Color:   resolveColor(attrs["color"], b.res),
		Hug:     truthy(attrs["hug"]),
		Order:   b.next(),
	}

	var lines []richtext.Line
	var lineHeight float64
	if minSize := number(attrs, "min-size", 0); minSize > 0 {
		fitted, err := b.engine.Fit(content, m, richtext.FitParams{
			Start:     fontSize,
			Min:       minSize,
			Step:      number(attrs, "step", richtext.DefaultFitStep),
			MaxWidth:  innerW,
			MaxHeight: innerH,
		})
		if err != nil {
			return err
		}
		lines, fontSize, lineHeight = fitted.Lines, fitted.FontSize, fitted.LineHeight
		tb.Fitted, tb.Attempts = fitted.Fits, fitted.Attempts
		if fitted.Fault != nil {
			tb.Fault = fitted.Fault.Error()
		}
	} else {
		lineHeight = fontSize * richtext.LineHeightFactor
		if spec, ok := ParseLineHeight(attrs["line-height"]); ok {
			lineHeight = spec.Resolve(fontSize)
		}
		toks, err := b.engine.Tokenize(content, m, fontSize)
		if err != nil {
			return err
		}
		if toks.Fault != nil {
			tb.Fault = toks.Fault.Error()
		} else {
			block, err := b.engine.Wrap(toks.Segments, innerW, m, fontSize)
			if err != nil {
				return err
			}
			lines = block.Lines
			if block.Fault != nil {
				tb.Fault = block.Fault.Error()
			}
		}
	}
	tb.FontSize = fontSize
	tb.LineHeight = lineHeight

	contentH := float64(len(lines)) * lineHeight
	tb.Height = contentH + 2*inset
	if hasHeight && !grow {
		tb.Height = height
	}
	if grow && hasHeight {
		delta := tb.Height - height
		b.grown = append(b.grown, growth{bottom: y + height, delta: delta})
		b.card.Height += delta
	}

	tb.Align = normalizeAlign(attrs["align"])
	tb.VAlign = strings.ToLower(strings.TrimSpace(attrs["valign"]))
	top := tb.Y + inset
	if innerH > 0 {
		// 溢出时保持同样的对齐方式，middle 向两侧溢出，bottom 向上溢出
		top += (innerH - contentH) * valignShare(tb.VAlign)
	}
	top += number(attrs, "offset-y", 0)

	// tracking 是片段之间的额外间距，只影响绘制位置，不参与折行
	tb.Tracking = number(attrs, "tracking", 0)
	innerX := x + inset
	tb.Lines = make([]TextLine, 0, len(lines))
	for i, ln := range lines {
		w := ln.Width()
		if len(ln) > 1 {
			w += tb.Tracking * float64(len(ln)-1)
		}
		tb.Lines = append(tb.Lines, TextLine{
			X:        innerX + alignOffset(innerW, w, tb.Align),
			Y:        top + float64(i)*lineHeight,
			Width:    w,
			Height:   lineHeight,
			Segments: ln,
		})
	}

	tb.StrikeWidth = math.Max(2, fontSize/15)
	if v, ok := attrs["strike-width"]; ok {
		if l, ok := ParseLength(v); ok && l.Value > 0 {
			tb.StrikeWidth = l.Px(0)
		}
	}
	if v := attrs["outline"]; v != "" {
		tb.Outline = &Outline{
			Color: resolveColor(v, b.res),
			Width: number(attrs, "outline-width", defaultOutlineWidth),
		}
	}
	if v := attrs["shadow"]; v != "" {
		off := number(attrs, "shadow-offset", defaultShadowOffset)
		tb.Shadow = &Shadow{Color: resolveColor(v, b.res), DX: off, DY: off}
	}
	if v := attrs["highlight"]; v != "" {
		tb.Highlights = highlights(tb, resolveColor(v, b.res), attrs)
	}
	if v := attrs["fill"]; v != "" {
		tb.Backdrop = backdrop(tb, resolveColor(v, b.res), inset, number(attrs, "radius", 0), tb.Hug)
	}
	if b.opts.Debug.RawUnits {
		tb.Debug = &TextBoxDebug{RawUnits: rawUnits(attrs)}
	}

	b.card.Texts = append(b.card.Texts, tb)
	return nil
}

func normalizeAlign(v string) string {
	switch v = strings.ToLower(strings.TrimSpace(v)); v {
	case "start":
		return "left"
	case "end":
		return "right"
	case "left", "center", "right":
		return v
	default:
		return ""
	}
}

func valignShare(v string) float64 {
	switch v {
	case "middle", "center":
		return 0.5
	case "bottom":
		return 1
	default:
		return 0
	}
}

// highlights 为每个非空行生成一个底色矩形，默认左右各留半个字号，上下共留四分之一字号。
func highlights(tb TextBox, c Color, attrs map[string]string) []Rect {
	padX := number(attrs, "highlight-pad", tb.FontSize*0.5)
	padY := number(attrs, "highlight-pad-y", tb.FontSize*0.25)
	out := make([]Rect, 0, len(tb.Lines))
	for _, ln := range tb.Lines {
		if ln.Width <= 0 {
			continue
		}
		fill := c
		out = append(out, Rect{
			X:         ln.X - padX/2,
			Y:         ln.Y + (ln.Height-tb.FontSize-padY)/2,
			Width:     ln.Width + padX,
			Height:    tb.FontSize + padY,
			FillColor: &fill,
			Order:     tb.Order,
		})
	}
	return out
}

// backdrop 生成文本框底板。hug 为真时底板宽度贴合最宽的一行。
func backdrop(tb TextBox, c Color, inset, radius float64, hug bool) *Rect {
	r := &Rect{
		X:         tb.X,
		Y:         tb.Y,
		Width:     tb.Width,
		Height:    tb.Height,
		Radius:    radius,
		FillColor: &c,
		Order:     tb.Order,
	}
	if hug && len(tb.Lines) > 0 {
		left, right := math.Inf(1), math.Inf(-1)
		for _, ln := range tb.Lines {
			left = math.Min(left, ln.X)
			right = math.Max(right, ln.X+ln.Width)
		}
		r.X = left - inset
		r.Width = right - left + 2*inset
	}
	return r
}

func rawUnits(attrs map[string]string) *RawUnits {
	size := RawLengthJSON{Value: defaultFontSize, Unit: "px"}
	if l, ok := ParseLength(attrs["size"]); ok && l.Value > 0 {
		size = RawLengthJSON{Value: l.Value, Unit: UnitToString(l.Unit)}
	}
	lh := RawLineHeightJSON{Kind: "factor", Factor: richtext.LineHeightFactor}
	if spec, ok := ParseLineHeight(attrs["line-height"]); ok && attrs["min-size"] == "" {
		if spec.Kind == LineHeightFactor {
			lh = RawLineHeightJSON{Kind: "factor", Factor: spec.Factor}
		} else {
			lh = RawLineHeightJSON{Kind: "absolute", Value: spec.Len.Value, Unit: UnitToString(spec.Len.Unit)}
		}
	}
	return &RawUnits{FontSize: &size, LineHeight: &lh}
}

func (b *cardBuilder) image(cmd *dsl.Command) error {
	name, attrs := parseArgs(cmd.Args, true)
	attrs = b.bind(attrs)
	src := attrs["src"]
	if name != "" {
		src = b.imageSource(name)
	}
	if src == "" {
		// 数据中没有提供的可选图片不参与绘制
		return nil
	}

	f := b.frame
	x, _ := f.xOf(attrs, "x")
	y, _ := f.yOf(attrs, "y")
	w, _ := coord(attrs, "width", f.w)
	h, _ := coord(attrs, "height", f.h)
	if w <= 0 || h <= 0 {
		iw, ih, err := b.opts.Typesetter.ImageSize(src)
		if err != nil {
			return fmt.Errorf("读取图片 %s 尺寸失败: %w", src, err)
		}
		if iw <= 0 || ih <= 0 {
			return fmt.Errorf("图片 %s 尺寸无效", src)
		}
		switch {
		case w <= 0 && h <= 0:
			w, h = float64(iw), float64(ih)
		case w <= 0:
			w = h * float64(iw) / float64(ih)
		default:
			h = w * float64(ih) / float64(iw)
		}
	}

	img := ImageBox{
		Path:    src,
		X:       x,
		Y:       b.place(y),
		Width:   w,
		Height:  h,
		Fit:     "stretch",
		Opacity: 1,
		Order:   b.next(),
	}
	switch v := strings.ToLower(attrs["fit"]); v {
	case "cover", "contain", "stretch":
		img.Fit = v
	}
	if strings.EqualFold(attrs["mask"], "circle") {
		img.Mask = "circle"
	}
	if v, ok := attrs["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			img.Opacity = math.Min(math.Max(f, 0), 1)
		}
	}
	b.card.Images = append(b.card.Images, img)
	return nil
}

func (b *cardBuilder) rect(cmd *dsl.Command) {
	_, attrs := parseArgs(cmd.Args, false)
	attrs = b.bind(attrs)
	f := b.frame
	var rc Rect
	rc.X, _ = f.xOf(attrs, "x")
	y, _ := f.yOf(attrs, "y")
	rc.Y = b.place(y)
	w, ok := coord(attrs, "width", f.w)
	if !ok {
		w = f.x + f.w - rc.X
	}
	rc.Width = w
	rc.Height, _ = coord(attrs, "height", f.h)
	if rc.Width <= 0 || rc.Height <= 0 {
		return
	}
	rc.Radius = math.Max(number(attrs, "radius", 0), 0)
	if v := attrs["stroke"]; v != "" {
		c := resolveColor(v, b.res)
		rc.StrokeColor = &c
		rc.StrokeWidth = number(attrs, "stroke-width", defaultRuleWidth)
	}
	if v := attrs["fill"]; v != "" {
		c := resolveColor(v, b.res)
		rc.FillColor = &c
	}
	rc.Order = b.next()
	b.card.Rects = append(b.card.Rects, rc)
}

func (b *cardBuilder) circle(cmd *dsl.Command) {
	_, attrs := parseArgs(cmd.Args, false)
	attrs = b.bind(attrs)
	var c Circle
	c.CX, _ = b.frame.xOf(attrs, "cx")
	cy, _ := b.frame.yOf(attrs, "cy")
	c.CY = b.place(cy)
	c.R = number(attrs, "r", 0)
	if c.R <= 0 {
		return
	}
	if v := attrs["stroke"]; v != "" {
		col := resolveColor(v, b.res)
		c.StrokeColor = &col
		c.StrokeWidth = number(attrs, "stroke-width", defaultRuleWidth)
	}
	if v := attrs["fill"]; v != "" {
		col := resolveColor(v, b.res)
		c.FillColor = &col
	}
	c.Order = b.next()
	b.card.Circles = append(b.card.Circles, c)
}

// line 支持完整写法 x1/y1/x2/y2，以及简写：
//
//	line x <len> y <len> length <len> [dir h|v] [color <..>] [width <len>]
func (b *cardBuilder) line(cmd *dsl.Command) {
	_, attrs := parseArgs(cmd.Args, false)
	attrs = b.bind(attrs)
	f := b.frame
	var ln Line
	if _, ok := attrs["x1"]; ok {
		ln.X1, _ = f.xOf(attrs, "x1")
		ln.Y1, _ = f.yOf(attrs, "y1")
		ln.X2, _ = f.xOf(attrs, "x2")
		ln.Y2, _ = f.yOf(attrs, "y2")
	} else {
		x, _ := f.xOf(attrs, "x")
		y, _ := f.yOf(attrs, "y")
		d := strings.ToLower(strings.TrimSpace(attrs["dir"]))
		switch d {
		case "", "h", "hor", "horizontal":
			length, ok := coord(attrs, "length", f.w)
			if !ok {
				length = f.w - 2*(x-f.x)
			}
			ln.X1, ln.Y1, ln.X2, ln.Y2 = x, y, x+length, y
		case "v", "ver", "vertical":
			length, ok := coord(attrs, "length", f.h)
			if !ok {
				length = f.h - 2*(y-f.y)
			}
			ln.X1, ln.Y1, ln.X2, ln.Y2 = x, y, x, y+length
		default:
			return
		}
	}
	if ln.X1 == ln.X2 && ln.Y1 == ln.Y2 {
		return
	}
	ln.Y1, ln.Y2 = b.place(ln.Y1), b.place(ln.Y2)
	ln.Color = black
	if v := attrs["color"]; v != "" {
		ln.Color = resolveColor(v, b.res)
	}
	ln.Width = number(attrs, "width", defaultRuleWidth)
	ln.Order = b.next()
	b.card.Lines = append(b.card.Lines, ln)
}
