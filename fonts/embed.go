package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ByLCY/inkcard/richtext"
)

// 内置字体来自 Go 字体家族，以 "embed:go/<variant>" 引用。
const (
	Regular    = "embed:go/regular"
	Bold       = "embed:go/bold"
	Italic     = "embed:go/italic"
	BoldItalic = "embed:go/bolditalic"
	Mono       = "embed:go/mono"
)

var builtin = map[string][]byte{
	"go/regular":    goregular.TTF,
	"go/bold":       gobold.TTF,
	"go/italic":     goitalic.TTF,
	"go/bolditalic": gobolditalic.TTF,
	"go/mono":       gomono.TTF,
}

// Load 返回内置字体的字节数据，path 可写为 "embed:go/regular" 或直接 "go/regular"。
func Load(path string) ([]byte, error) {
	target := strings.TrimPrefix(path, "embed:")
	data, ok := builtin[target]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体（可用: %s）", target, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 列出全部内置字体的 embed 地址。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, "embed:"+name)
	}
	sort.Strings(out)
	return out
}

// ReadSource 读取字体源：embed: 前缀走内置字体，其余按路径读取，相对路径基于 baseDir。
func ReadSource(baseDir, src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体源为空")
	}
	if strings.HasPrefix(src, "embed:") {
		return Load(src)
	}
	path := src
	if !filepath.IsAbs(path) {
		if baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", src)
		}
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// ForKind 返回某种片段类型默认使用的内置字体。
func ForKind(kind richtext.Kind) string {
	switch kind {
	case richtext.KindBold:
		return Bold
	case richtext.KindItalic:
		return Italic
	case richtext.KindBoldItalic:
		return BoldItalic
	case richtext.KindMonospace:
		return Mono
	default:
		return Regular
	}
}

// Set 为每种字形变体指定字体源。粗体与斜体的空字段回退到同一字族的 Regular，
// 等宽字段为空时使用内置 Go Mono；Regular 也为空时回退到 ForKind 的内置字体。
type Set struct {
	Regular    string `json:"regular,omitempty"`
	Bold       string `json:"bold,omitempty"`
	Italic     string `json:"italic,omitempty"`
	BoldItalic string `json:"boldItalic,omitempty"`
	Mono       string `json:"mono,omitempty"`
}

// Src 返回测量或绘制 kind 片段所用的字体源。
// 删除线、空白与 emoji 的文本回退都使用常规字形。
func (s Set) Src(kind richtext.Kind) string {
	var src string
	switch kind {
	case richtext.KindBold:
		src = s.Bold
	case richtext.KindItalic:
		src = s.Italic
	case richtext.KindBoldItalic:
		src = s.BoldItalic
	case richtext.KindMonospace:
		src = s.Mono
	default:
		src = s.Regular
	}
	if src != "" {
		return src
	}
	if s.Regular != "" && kind != richtext.KindMonospace {
		return s.Regular
	}
	return ForKind(kind)
}
