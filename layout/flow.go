package layout

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/ByLCY/inkcard/binding"
	"github.com/ByLCY/inkcard/dsl"
)

// frame 是元素坐标的参照框。x/y 是框在卡片上的左上角，百分比与负坐标以 w/h 为参照。
// top 只在卡片顶层为真，此时坐标会经过 grow 平移。
type frame struct {
	x, y, w, h float64
	top        bool
}

func (f frame) xOf(attrs map[string]string, key string) (float64, bool) {
	v, ok := coord(attrs, key, f.w)
	return f.x + v, ok
}

func (f frame) yOf(attrs map[string]string, key string) (float64, bool) {
	v, ok := coord(attrs, key, f.h)
	return f.y + v, ok
}

// flowState 记录 stack 中已排好的内容底边（相对 stack 顶部）。
type flowState struct {
	gap    float64
	bottom float64
}

// box 是元素在卡片上占据的外框。
type box struct {
	x, y, w, h float64
}

func (bx box) frame() frame {
	return frame{x: bx.x, y: bx.y, w: bx.w, h: bx.h}
}

func (bx box) union(o box) box {
	left, top := math.Min(bx.x, o.x), math.Min(bx.y, o.y)
	right := math.Max(bx.x+bx.w, o.x+o.w)
	bottom := math.Max(bx.y+bx.h, o.y+o.h)
	return box{x: left, y: top, w: right - left, h: bottom - top}
}

// mark 是各类元素切片的长度快照，用来找出某条语句新增的元素。
type mark struct {
	texts, images, lines, rects, circles int
}

func (b *cardBuilder) mark() mark {
	return mark{
		texts:   len(b.card.Texts),
		images:  len(b.card.Images),
		lines:   len(b.card.Lines),
		rects:   len(b.card.Rects),
		circles: len(b.card.Circles),
	}
}

func (b *cardBuilder) statements(stmts []*dsl.Statement) error {
	for _, stmt := range stmts {
		if err := b.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *cardBuilder) statement(stmt *dsl.Statement) error {
	switch {
	case stmt.Assignment != nil:
		b.assign(stmt.Assignment)
	case stmt.Each != nil:
		return b.each(stmt.Each)
	case stmt.Container != nil:
		c := stmt.Container
		return b.element(c.Args, func() error { return b.container(c) })
	case stmt.Command != nil:
		cmd := stmt.Command
		return b.element(cmd.Args, func() error { return b.command(cmd) })
	}
	return nil
}

// element 处理所有元素共有的参数：
//
//	if <值> / unless <值>   值为空或为假时跳过 / 值为真时跳过
//	float true              以上一个元素的外框为参照框，不占用 stack 中的位置
//	dx <len> / dy <len>     整体平移
func (b *cardBuilder) element(args []*dsl.Lexeme, build func() error) error {
	_, attrs := parseArgs(args, true)
	ctl := map[string]string{}
	for _, key := range []string{"if", "unless", "float", "dx", "dy"} {
		if v, ok := attrs[key]; ok {
			ctl[key] = binding.Interpolate(v, b.data)
		}
	}
	if v, ok := ctl["if"]; ok && !enabled(v) {
		return nil
	}
	if v, ok := ctl["unless"]; ok && enabled(v) {
		return nil
	}

	saved := b.frame
	float := truthy(ctl["float"])
	if float && b.last != nil {
		b.frame = b.last.frame()
	}
	start := b.mark()
	err := build()
	b.frame = saved
	if err != nil {
		return err
	}

	if dx, dy := number(ctl, "dx", 0), number(ctl, "dy", 0); dx != 0 || dy != 0 {
		b.translate(start, dx, dy)
	}
	bounds, ok := b.bounds(start)
	if !ok || float {
		return nil
	}
	b.last = &bounds
	if b.flow != nil {
		b.flow.bottom = bounds.y + bounds.h
		b.frame.y = b.flow.bottom + b.flow.gap
	}
	return nil
}

// enabled 判断条件值：空串为假，能解析为布尔值时取其值，其余非空值为真。
func enabled(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if ok, err := strconv.ParseBool(v); err == nil {
		return ok
	}
	return true
}

func (b *cardBuilder) container(c *dsl.Container) error {
	_, attrs := parseArgs(c.Args, false)
	attrs = b.bind(attrs)
	switch c.Kind {
	case "group":
		return b.group(c.Body, attrs)
	case "stack":
		return b.stack(c.Body, attrs)
	}
	return fmt.Errorf("未知容器 %s", c.Kind)
}

// body 在当前参照框内执行容器语句，float 元素只能参照同一容器内的元素。
func (b *cardBuilder) body(block *dsl.Block, flow *flowState) error {
	if block == nil {
		return nil
	}
	last, outer := b.last, b.flow
	b.last, b.flow = nil, flow
	err := b.statements(block.Statements)
	b.last, b.flow = last, outer
	return err
}

// group 建立一个新的参照框，子元素坐标相对框的左上角。
func (b *cardBuilder) group(block *dsl.Block, attrs map[string]string) error {
	parent := b.frame
	x, _ := parent.xOf(attrs, "x")
	y, _ := parent.yOf(attrs, "y")
	w, ok := coord(attrs, "width", parent.w)
	if !ok || w <= 0 {
		w = parent.x + parent.w - x
	}
	h, ok := coord(attrs, "height", parent.h)
	if !ok || h <= 0 {
		h = math.Max(parent.y+parent.h-y, 0)
	}
	b.frame = frame{x: x, y: b.place(y), w: w, h: h}
	return b.body(block, nil)
}

// stack 把子元素自上而下依次排列，间距为 gap。排完后按总高度定位：
//
//	y <len> [anchor top|middle|bottom]   stack 的顶部、中线或底边落在 y
//	y after [margin <len>]              紧接上一个元素的底边
//	min-y <len> / max-bottom <len>      限制顶部不高于、底边不低于给定位置
//	fill/stroke/radius                   整个 stack 的底板
func (b *cardBuilder) stack(block *dsl.Block, attrs map[string]string) error {
	parent := b.frame
	order := b.next()

	x, _ := parent.xOf(attrs, "x")
	w, ok := coord(attrs, "width", parent.w)
	if !ok || w <= 0 {
		w = parent.x + parent.w - x
	}

	var anchor float64
	if strings.EqualFold(strings.TrimSpace(attrs["y"]), "after") {
		anchor = parent.y
		if b.last != nil {
			anchor = b.last.y + b.last.h
		}
		anchor += number(attrs, "margin", 0)
	} else {
		y, _ := parent.yOf(attrs, "y")
		anchor = b.place(y)
	}

	start := b.mark()
	flow := &flowState{gap: number(attrs, "gap", 0)}
	b.frame = frame{x: x, w: w}
	if err := b.body(block, flow); err != nil {
		return err
	}
	h := flow.bottom

	top := anchor - h*valignShare(strings.ToLower(strings.TrimSpace(attrs["anchor"])))
	if v, ok := parent.yOf(attrs, "min-y"); ok {
		top = math.Max(top, v)
	}
	if v, ok := parent.yOf(attrs, "max-bottom"); ok && top+h > v {
		top = v - h
	}
	b.translate(start, 0, top)

	if h <= 0 {
		return nil
	}
	rc := Rect{X: x, Y: top, Width: w, Height: h, Radius: math.Max(number(attrs, "radius", 0), 0), Order: order}
	if v := attrs["fill"]; v != "" {
		c := resolveColor(v, b.res)
		rc.FillColor = &c
	}
	if v := attrs["stroke"]; v != "" {
		c := resolveColor(v, b.res)
		rc.StrokeColor = &c
		rc.StrokeWidth = number(attrs, "stroke-width", defaultRuleWidth)
	}
	if rc.FillColor != nil || rc.StrokeColor != nil {
		b.card.Rects = append(b.card.Rects, rc)
	}
	return nil
}

// each 对列表逐项执行语句块。循环体内可以使用循环变量与 loop.index/loop.first/loop.last。
func (b *cardBuilder) each(e *dsl.Each) error {
	path := strings.Join(e.Path, ".")
	list, ok := binding.Lookup(b.data, path)
	if !ok || list == nil {
		return nil
	}
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("each %s: %s 不是列表", e.Var, path)
	}
	if e.Body == nil {
		return nil
	}

	outer := b.data
	defer func() { b.data = outer }()
	n := v.Len()
	for i := 0; i < n; i++ {
		b.data = binding.Scope{
			Vars: map[string]any{
				e.Var: v.Index(i).Interface(),
				"loop": map[string]any{
					"index": i,
					"first": i == 0,
					"last":  i == n-1,
				},
			},
			Parent: outer,
		}
		if err := b.statements(e.Body.Statements); err != nil {
			return err
		}
	}
	return nil
}

// bounds 返回快照之后新增元素的外框。
func (b *cardBuilder) bounds(m mark) (box, bool) {
	var out box
	found := false
	add := func(bx box) {
		if !found {
			out, found = bx, true
			return
		}
		out = out.union(bx)
	}
	for _, tb := range b.card.Texts[m.texts:] {
		add(textBounds(tb))
	}
	for _, img := range b.card.Images[m.images:] {
		add(box{x: img.X, y: img.Y, w: img.Width, h: img.Height})
	}
	for _, ln := range b.card.Lines[m.lines:] {
		add(box{
			x: math.Min(ln.X1, ln.X2),
			y: math.Min(ln.Y1, ln.Y2),
			w: math.Abs(ln.X2 - ln.X1),
			h: math.Abs(ln.Y2 - ln.Y1),
		})
	}
	for _, rc := range b.card.Rects[m.rects:] {
		add(box{x: rc.X, y: rc.Y, w: rc.Width, h: rc.Height})
	}
	for _, c := range b.card.Circles[m.circles:] {
		add(box{x: c.CX - c.R, y: c.CY - c.R, w: 2 * c.R, h: 2 * c.R})
	}
	return out, found
}

// textBounds 的横向范围依次取底板、贴合的行或整个文本框。
func textBounds(tb TextBox) box {
	out := box{x: tb.X, y: tb.Y, w: tb.Width, h: tb.Height}
	switch {
	case tb.Backdrop != nil:
		out.x, out.w = tb.Backdrop.X, tb.Backdrop.Width
	case tb.Hug && len(tb.Lines) > 0:
		left, right := math.Inf(1), math.Inf(-1)
		for _, ln := range tb.Lines {
			left = math.Min(left, ln.X)
			right = math.Max(right, ln.X+ln.Width)
		}
		out.x, out.w = left, right-left
	}
	return out
}

func (b *cardBuilder) translate(m mark, dx, dy float64) {
	for i := m.texts; i < len(b.card.Texts); i++ {
		b.card.Texts[i].move(dx, dy)
	}
	for i := m.images; i < len(b.card.Images); i++ {
		b.card.Images[i].X += dx
		b.card.Images[i].Y += dy
	}
	for i := m.lines; i < len(b.card.Lines); i++ {
		ln := &b.card.Lines[i]
		ln.X1, ln.X2 = ln.X1+dx, ln.X2+dx
		ln.Y1, ln.Y2 = ln.Y1+dy, ln.Y2+dy
	}
	for i := m.rects; i < len(b.card.Rects); i++ {
		b.card.Rects[i].move(dx, dy)
	}
	for i := m.circles; i < len(b.card.Circles); i++ {
		b.card.Circles[i].CX += dx
		b.card.Circles[i].CY += dy
	}
}

func (tb *TextBox) move(dx, dy float64) {
	tb.X += dx
	tb.Y += dy
	for i := range tb.Lines {
		tb.Lines[i].X += dx
		tb.Lines[i].Y += dy
	}
	for i := range tb.Highlights {
		tb.Highlights[i].move(dx, dy)
	}
	if tb.Backdrop != nil {
		tb.Backdrop.move(dx, dy)
	}
}

func (rc *Rect) move(dx, dy float64) {
	rc.X += dx
	rc.Y += dy
}
