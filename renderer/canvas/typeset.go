package canvasrenderer

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
)

// MeasurerFor 返回按 canvas 字形度量测量片段宽度的测量器。
// 常规字形会被立即加载，字体不可用时在排版阶段就报错。
func (r *Renderer) MeasurerFor(font layout.FontResource) (richtext.Measurer, error) {
	set := font.Set()
	if _, err := r.ensureFontFamily(set.Src(richtext.KindText)); err != nil {
		return nil, fmt.Errorf("字体 %s: %w", font.Name, err)
	}
	return &faceMeasurer{r: r, set: set}, nil
}

// faceMeasurer 以像素为单位测量：字号先换算为 pt 再创建字面，TextWidth 返回的画布单位即像素。
type faceMeasurer struct {
	r   *Renderer
	set fonts.Set

	mu    sync.Mutex
	faces map[faceKey]*canvas.FontFace
}

type faceKey struct {
	kind richtext.Kind
	size float64
}

func (m *faceMeasurer) Measure(text string, kind richtext.Kind, fontSize float64) float64 {
	if kind == richtext.KindEmoji {
		return fontSize * richtext.EmojiScale
	}
	if text == "" {
		return 0
	}
	face, err := m.face(kind, fontSize)
	if err != nil {
		return math.NaN()
	}
	return face.TextWidth(text)
}

func (m *faceMeasurer) face(kind richtext.Kind, size float64) (*canvas.FontFace, error) {
	key := faceKey{kind: kind, size: size}
	m.mu.Lock()
	defer m.mu.Unlock()
	if face, ok := m.faces[key]; ok {
		return face, nil
	}
	face, err := m.r.fontFace(m.set, kind, size, canvas.Black)
	if err != nil {
		return nil, err
	}
	if m.faces == nil {
		m.faces = map[faceKey]*canvas.FontFace{}
	}
	m.faces[key] = face
	return face, nil
}

// fontFace 为 kind 片段创建字面，size 为像素。
func (r *Renderer) fontFace(set fonts.Set, kind richtext.Kind, size float64, col color.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(set.Src(kind))
	if err != nil {
		return nil, err
	}
	return family.Face(toPt(size), col, canvas.FontRegular, canvas.FontNormal), nil
}

// ensureFontFamily 按字体源缓存字体家族，每个家族只装载一个常规字形。
func (r *Renderer) ensureFontFamily(src string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[src]; ok {
		return family, nil
	}
	data, err := r.loadFontBytes(src)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(src)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
	}
	r.fontFamilies[src] = family
	return family, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if name, ok := builtinName(src); ok {
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	return fonts.ReadSource(r.baseDir, src)
}

func builtinName(src string) (string, bool) {
	for _, prefix := range []string{"built-in:", "builtin:"} {
		if strings.HasPrefix(src, prefix) {
			return strings.TrimPrefix(src, prefix), true
		}
	}
	return "", false
}

func resolveFontResource(name string, fonts map[string]layout.FontResource) layout.FontResource {
	if font, ok := fonts[name]; ok {
		return font
	}
	if font, ok := fonts["Body"]; ok {
		return font
	}
	return layout.FontResource{Name: name}
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.A)/255.0)
}

// toPt 将像素字号转换为点(pt)。画布单位按 1 像素处理。
func toPt(px float64) float64 { return px * layout.MmToPt }
