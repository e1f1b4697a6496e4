package layout

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	defaultInk = Color{R: 30, G: 30, B: 30, A: 255}
	black      = Color{A: 255}
	white      = Color{R: 255, G: 255, B: 255, A: 255}

	namedColors = map[string]Color{
		"black":       black,
		"white":       white,
		"transparent": {},
	}
)

// Palette 是根据背景亮度推导出的一组前景色。
type Palette struct {
	Text  Color
	Muted Color
	Rule  Color
}

// ContrastColor 返回在 bg 上可读的黑色或白色。
func ContrastColor(bg Color) Color {
	luminance := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luminance > 140 {
		return black
	}
	return white
}

// ContrastPalette 在 ContrastColor 的基础上给出次要文字色与分隔线色。
func ContrastPalette(bg Color) Palette {
	text := ContrastColor(bg)
	if text == white {
		return Palette{Text: text, Muted: mustColor("#8493a2"), Rule: mustColor("#38444d")}
	}
	return Palette{Text: text, Muted: mustColor("#536471"), Rule: mustColor("#cfd9de")}
}

// resolveColor 按颜色资源名、颜色名、十六进制值和 contrast 前缀的顺序解析颜色，
// 无法解析时返回默认墨色。
func resolveColor(value string, res ResourceSet) Color {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultInk
	}
	if c, ok := res.Colors[value]; ok {
		return c
	}
	if c, ok := namedColors[strings.ToLower(value)]; ok {
		return c
	}
	if strings.HasPrefix(value, "#") {
		if c, err := parseColor(value); err == nil {
			return c
		}
		return defaultInk
	}
	if prefix, bg, ok := strings.Cut(value, ":"); ok {
		palette := ContrastPalette(resolveColor(bg, res))
		switch strings.ToLower(strings.TrimSpace(prefix)) {
		case "contrast":
			return palette.Text
		case "contrast-muted":
			return palette.Muted
		case "contrast-rule":
			return palette.Rule
		}
	}
	return defaultInk
}

// parseColor 解析 #RGB、#RRGGBB 与 #RRGGBBAA。
func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	for _, r := range value {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
	}
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return Color{
			R: mustHex(r),
			G: mustHex(g),
			B: mustHex(b),
			A: 255,
		}, nil
	case 6, 8:
		c := Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
			A: 255,
		}
		if len(value) == 8 {
			c.A = mustHex(value[6:8])
		}
		return c, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustColor(value string) Color {
	c, err := parseColor(value)
	if err != nil {
		panic(err)
	}
	return c
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}
