package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/inkcard/emoji"
	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/renderer"
)

// Renderer draws card layouts via github.com/tdewolff/canvas.
// One canvas unit is one card pixel; font sizes are converted to points
// at the font boundary (see toPt).
type Renderer struct {
	baseDir string
	format  Format
	scale   float64
	emoji   *emoji.Resolver

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily // by font src

	imageMu sync.Mutex
	images  map[string]image.Image // decoded, by image src
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Format 选择 Render 的输出格式。
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// FormatFromPath 根据输出文件扩展名推断格式。
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("不支持的输出格式：%s（仅支持 .png 与 .pdf）", path)
	}
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Format  Format              // 默认 PNG
	Scale   float64             // 栅格化倍率，PNG 输出尺寸为卡片尺寸乘以 Scale，默认 1
	EmojiFS fs.FS               // twemoji 风格的字形 PNG 目录，为空时 emoji 以文字绘制
	Fonts   map[string]Resource // built-in fonts accessible via built-in:<name>
	Images  map[string]Resource // built-in images accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a PNG renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		format:       opts.Format,
		scale:        opts.Scale,
		fontBlobs:    map[string][]byte{},
		imageBlobs:   map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
		images:       map[string]image.Image{},
	}
	if r.format == "" {
		r.format = FormatPNG
	}
	if !(r.scale > 0) {
		r.scale = 1
	}
	if opts.EmojiFS != nil {
		r.emoji = emoji.NewResolver(opts.EmojiFS)
	}
	ingest(r.fontBlobs, opts.Fonts)
	ingest(r.imageBlobs, opts.Images)
	return r
}

func ingest(dst map[string][]byte, resources map[string]Resource) {
	for name, res := range resources {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			dst[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // ignore error here; will be caught when actually used
			if len(data) > 0 {
				dst[name] = data
			}
		}
	}
}

// Render 按配置的格式输出：PNG 只绘制第一张卡片，PDF 每张卡片一页。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Cards) == 0 {
		return nil, fmt.Errorf("缺少可渲染的卡片")
	}
	if r.format == FormatPDF {
		return r.renderPDF(result)
	}
	return r.RenderCard(result, 0)
}

// RenderCard 把第 index 张卡片编码为 PNG。
func (r *Renderer) RenderCard(result *layout.Result, index int) ([]byte, error) {
	img, err := r.RenderImage(result, index)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderImage 把第 index 张卡片栅格化为图像。
func (r *Renderer) RenderImage(result *layout.Result, index int) (*image.RGBA, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if index < 0 || index >= len(result.Cards) {
		return nil, fmt.Errorf("卡片序号 %d 超出范围（共 %d 张）", index, len(result.Cards))
	}
	c, err := r.drawCard(&result.Cards[index], result.Resources)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(r.scale), canvas.DefaultColorSpace), nil
}

func (r *Renderer) renderPDF(result *layout.Result) ([]byte, error) {
	var buf bytes.Buffer
	first := result.Cards[0]
	writer := pdf.New(&buf, first.Width, first.Height, nil)
	r.applyMeta(writer, result.Meta)
	for i := range result.Cards {
		card := &result.Cards[i]
		if i > 0 {
			writer.NewPage(card.Width, card.Height)
		}
		c, err := r.drawCard(card, result.Resources)
		if err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawCard(card *layout.Card, res layout.ResourceSet) (*canvas.Canvas, error) {
	if r.emoji != nil {
		if err := r.emoji.Prefetch(context.Background(), card.EmojiKeys()); err != nil {
			return nil, fmt.Errorf("加载 emoji 字形失败: %w", err)
		}
	}

	c := canvas.New(card.Width, card.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if card.Background != nil {
		ctx.SetFillColor(colorFromLayout(*card.Background))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(card.Width, card.Height))
	}
	for _, p := range card.Paints() {
		var err error
		switch {
		case p.Rect != nil:
			r.drawRect(ctx, *p.Rect)
		case p.Circle != nil:
			r.drawCircle(ctx, *p.Circle)
		case p.Line != nil:
			r.drawLine(ctx, *p.Line)
		case p.Image != nil:
			err = r.drawImage(ctx, *p.Image)
		case p.Text != nil:
			err = r.drawTextBox(ctx, p.Text, resolveFontResource(p.Text.Font, res.Fonts))
		}
		if err != nil {
			return nil, fmt.Errorf("卡片 %s: %w", card.Name, err)
		}
	}
	return c, nil
}
