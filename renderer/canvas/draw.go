package canvasrenderer

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/inkcard/emoji"
	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
)

const defaultStrokeWidth = 1.0

// outlineSteps 是描边文字在一圈上的偏移方向数。
var outlineSteps = [][2]float64{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// drawTextBox 依次绘制底板、高亮、阴影、描边与正文。
func (r *Renderer) drawTextBox(ctx *canvas.Context, tb *layout.TextBox, fontRes layout.FontResource) error {
	if tb.Backdrop != nil {
		r.drawRect(ctx, *tb.Backdrop)
	}
	for _, hl := range tb.Highlights {
		r.drawRect(ctx, hl)
	}
	if len(tb.Lines) == 0 {
		return nil
	}

	if tb.Shadow != nil {
		if err := r.drawTextPass(ctx, tb, fontRes, colorFromLayout(tb.Shadow.Color), tb.Shadow.DX, tb.Shadow.DY, false); err != nil {
			return err
		}
	}
	if tb.Outline != nil && tb.Outline.Width > 0 {
		radius := tb.Outline.Width / 2
		col := colorFromLayout(tb.Outline.Color)
		for _, step := range outlineSteps {
			if err := r.drawTextPass(ctx, tb, fontRes, col, step[0]*radius, step[1]*radius, false); err != nil {
				return err
			}
		}
	}
	return r.drawTextPass(ctx, tb, fontRes, colorFromLayout(tb.Color), 0, 0, true)
}

// drawTextPass 按片段逐个绘制一遍文字。main 为假时只绘制字形轮廓层，
// 不绘制 emoji 图片与删除线。
func (r *Renderer) drawTextPass(ctx *canvas.Context, tb *layout.TextBox, fontRes layout.FontResource, col color.Color, dx, dy float64, main bool) error {
	set := fontRes.Set()
	size := tb.FontSize
	for _, line := range tb.Lines {
		lh := line.Height
		if lh <= 0 {
			lh = tb.LineHeight
		}
		x := line.X + dx
		top := line.Y + dy
		for _, seg := range line.Segments {
			switch seg.Kind {
			case richtext.KindWhitespace, richtext.KindNewline:
				x += seg.Width + tb.Tracking
				continue
			case richtext.KindEmoji:
				drawn, err := r.drawEmoji(ctx, seg.Content, x, top+(lh-size)/2, size, main)
				if err != nil {
					return err
				}
				if drawn {
					x += seg.Width + tb.Tracking
					continue
				}
			}

			face, err := r.fontFace(set, seg.Kind, size, col)
			if err != nil {
				return fmt.Errorf("字体 %s: %w", fontRes.Name, err)
			}
			m := face.Metrics()
			baseline := top + (lh-m.LineHeight)/2 + m.Ascent
			ctx.DrawText(x, baseline, canvas.NewTextLine(face, seg.Content, canvas.Left))

			if seg.Kind == richtext.KindStrikethrough && main {
				w := tb.StrikeWidth
				if w <= 0 {
					w = defaultStrokeWidth
				}
				ctx.SetFillColor(canvas.Transparent)
				ctx.SetStrokeColor(col)
				ctx.SetStrokeWidth(w)
				p := &canvas.Path{}
				p.MoveTo(0, 0)
				p.LineTo(seg.Width, 0)
				ctx.DrawPath(x, top+lh/2, p)
			}
			x += seg.Width + tb.Tracking
		}
	}
	return nil
}

// drawEmoji 绘制 emoji 字形图片。没有字形时返回 false，由调用方退回文字绘制；
// 描边与阴影层不绘制图片，只占位。
func (r *Renderer) drawEmoji(ctx *canvas.Context, key string, x, y, size float64, main bool) (bool, error) {
	glyph, err := r.emoji.Glyph(key)
	if err != nil {
		if errors.Is(err, emoji.ErrNoGlyph) {
			return false, nil
		}
		return false, err
	}
	if !main {
		return true, nil
	}
	px := r.pixels(size)
	img := fitImage(glyph, px, px, "contain", "", 1)
	ctx.DrawImage(x, y, img, canvas.DPMM(r.scale))
	return true, nil
}

func (r *Renderer) drawLine(ctx *canvas.Context, ln layout.Line) {
	w := ln.Width
	if w <= 0 {
		w = defaultStrokeWidth
	}
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(colorFromLayout(ln.Color))
	ctx.SetStrokeWidth(w)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
	ctx.DrawPath(ln.X1, ln.Y1, p)
}

func (r *Renderer) drawRect(ctx *canvas.Context, rc layout.Rect) {
	if rc.Width <= 0 || rc.Height <= 0 {
		return
	}
	setPaint(ctx, rc.FillColor, rc.StrokeColor, rc.StrokeWidth)
	var shape *canvas.Path
	if rc.Radius > 0 {
		shape = canvas.RoundedRectangle(rc.Width, rc.Height, rc.Radius)
	} else {
		shape = canvas.Rectangle(rc.Width, rc.Height)
	}
	ctx.DrawPath(rc.X, rc.Y, shape)
}

func (r *Renderer) drawCircle(ctx *canvas.Context, c layout.Circle) {
	if c.R <= 0 {
		return
	}
	setPaint(ctx, c.FillColor, c.StrokeColor, c.StrokeWidth)
	ctx.DrawPath(c.CX, c.CY, canvas.Circle(c.R))
}

func setPaint(ctx *canvas.Context, fill, stroke *layout.Color, width float64) {
	if fill != nil {
		ctx.SetFillColor(colorFromLayout(*fill))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if stroke != nil {
		if width <= 0 {
			width = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(*stroke))
		ctx.SetStrokeWidth(width)
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetStrokeWidth(0)
	}
}

// pixels 把画布长度换算为栅格化后的像素数。
func (r *Renderer) pixels(v float64) int {
	px := int(v*r.scale + 0.5)
	if px < 1 {
		px = 1
	}
	return px
}

func normalizeFit(fit string) string {
	switch strings.ToLower(fit) {
	case "cover", "contain":
		return strings.ToLower(fit)
	default:
		return "stretch"
	}
}
