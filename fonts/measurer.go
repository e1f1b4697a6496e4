package fonts

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/ByLCY/inkcard/richtext"
)

// FaceMeasurer 基于 sfnt 字形度量实现 richtext.Measurer，字号单位为像素。
// 解析后的字体与字面按源和字号缓存，可以并发使用。
type FaceMeasurer struct {
	set     Set
	baseDir string

	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
	err   error
}

type faceKey struct {
	src  string
	size float64
}

var _ richtext.Measurer = (*FaceMeasurer)(nil)

// NewFaceMeasurer 创建测量器，相对路径的字体源基于 baseDir 解析。
func NewFaceMeasurer(set Set, baseDir string) *FaceMeasurer {
	return &FaceMeasurer{
		set:     set,
		baseDir: baseDir,
		fonts:   map[string]*opentype.Font{},
		faces:   map[faceKey]font.Face{},
	}
}

// Measure 返回 text 在 kind 对应字形与 fontSize 下的前进宽度。
// 字体加载失败时返回 NaN，错误可通过 Err 取得。
func (m *FaceMeasurer) Measure(text string, kind richtext.Kind, fontSize float64) float64 {
	if kind == richtext.KindEmoji {
		return fontSize * richtext.EmojiScale
	}
	if text == "" {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	face, err := m.face(m.set.Src(kind), fontSize)
	if err != nil {
		m.err = err
		return math.NaN()
	}
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}

// Err 返回最近一次字体加载错误。
func (m *FaceMeasurer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close 释放缓存的字面。
func (m *FaceMeasurer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for key, face := range m.faces {
		if err := face.Close(); err != nil && first == nil {
			first = err
		}
		delete(m.faces, key)
	}
	return first
}

func (m *FaceMeasurer) face(src string, size float64) (font.Face, error) {
	key := faceKey{src: src, size: size}
	if face, ok := m.faces[key]; ok {
		return face, nil
	}
	f, ok := m.fonts[src]
	if !ok {
		data, err := ReadSource(m.baseDir, src)
		if err != nil {
			return nil, err
		}
		f, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
		}
		m.fonts[src] = f
	}
	// DPI 为 72 时 Size 即像素。
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("创建字体 %s 字面失败: %w", src, err)
	}
	m.faces[key] = face
	return face, nil
}
