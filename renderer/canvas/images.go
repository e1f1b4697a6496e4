package canvasrenderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	xdraw "golang.org/x/image/draw"

	"github.com/ByLCY/inkcard/layout"
)

// ImageSize 返回图片的像素尺寸，只解码文件头。
func (r *Renderer) ImageSize(src string) (int, int, error) {
	r.imageMu.Lock()
	img, ok := r.images[src]
	r.imageMu.Unlock()
	if ok {
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	data, err := r.loadImageBytes(src)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("解码图片 %s 失败: %w", displaySource(src), err)
	}
	return cfg.Width, cfg.Height, nil
}

func (r *Renderer) drawImage(ctx *canvas.Context, box layout.ImageBox) error {
	if box.Path == "" || box.Width <= 0 || box.Height <= 0 || box.Opacity <= 0 {
		return nil
	}
	src, err := r.loadImage(box.Path)
	if err != nil {
		return err
	}
	img := fitImage(src, r.pixels(box.Width), r.pixels(box.Height), box.Fit, box.Mask, box.Opacity)
	ctx.DrawImage(box.X, box.Y, img, canvas.DPMM(r.scale))
	return nil
}

// loadImage 解码并缓存图片。
func (r *Renderer) loadImage(src string) (image.Image, error) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[src]; ok {
		return img, nil
	}
	data, err := r.loadImageBytes(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", displaySource(src), err)
	}
	r.images[src] = img
	return img, nil
}

func (r *Renderer) loadImageBytes(src string) ([]byte, error) {
	if name, ok := builtinName(src); ok {
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		return blob, nil
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	if strings.HasPrefix(src, "embed:") {
		return nil, fmt.Errorf("图片资源 %s 未找到（embed 仅支持内置字体，暂不支持图片）", src)
	}
	if r.baseDir == "" && !filepath.IsAbs(src) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 built-in: 或 data:）", src)
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
	}
	return data, nil
}

// decodeDataURI 解析 "data:image/png;base64,..." 形式的内联图片。
func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("data URI 格式错误")
	}
	if !strings.HasSuffix(header, ";base64") {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI 解码失败: %w", err)
	}
	return data, nil
}

func displaySource(src string) string {
	if strings.HasPrefix(src, "data:") {
		if head, _, ok := strings.Cut(src, ","); ok {
			return head + ",…"
		}
	}
	return src
}

// fitImage 把 src 缩放为 w×h 像素。cover 居中裁剪，contain 保持比例并留透明边，
// 其余拉伸填满。mask 为 circle 时裁成内切圆，opacity 小于 1 时整体变淡。
func fitImage(src image.Image, w, h int, fit, mask string, opacity float64) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	if sw == 0 || sh == 0 {
		return dst
	}

	srcRect := sb
	dstRect := dst.Bounds()
	switch normalizeFit(fit) {
	case "cover":
		scale := math.Max(float64(w)/sw, float64(h)/sh)
		cw := int(math.Round(float64(w) / scale))
		ch := int(math.Round(float64(h) / scale))
		x0 := sb.Min.X + (sb.Dx()-cw)/2
		y0 := sb.Min.Y + (sb.Dy()-ch)/2
		srcRect = image.Rect(x0, y0, x0+cw, y0+ch).Intersect(sb)
	case "contain":
		scale := math.Min(float64(w)/sw, float64(h)/sh)
		cw := int(math.Round(sw * scale))
		ch := int(math.Round(sh * scale))
		x0 := (w - cw) / 2
		y0 := (h - ch) / 2
		dstRect = image.Rect(x0, y0, x0+cw, y0+ch)
	}
	xdraw.CatmullRom.Scale(dst, dstRect, src, srcRect, xdraw.Over, nil)

	if mask != "circle" && opacity >= 1 {
		return dst
	}
	alpha := uint8(255)
	if opacity < 1 {
		alpha = uint8(math.Round(opacity * 255))
	}
	m := image.NewAlpha(dst.Bounds())
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(cx, cy)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask == "circle" {
				dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
				if dx*dx+dy*dy > radius*radius {
					continue
				}
			}
			m.SetAlpha(x, y, color.Alpha{A: alpha})
		}
	}
	out := image.NewRGBA(dst.Bounds())
	xdraw.DrawMask(out, out.Bounds(), dst, image.Point{}, m, image.Point{}, xdraw.Over)
	return out
}
