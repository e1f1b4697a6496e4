package emoji

import (
	"strconv"
	"strings"
)

// FileName 返回 twemoji 风格的图片文件名，例如 "👩‍💻" 对应 "1f469-200d-1f4bb.png"。
// 不含零宽连接符的序列会去掉 U+FE0F。
func FileName(key string) string {
	runes := []rune(key)
	keepVS := strings.ContainsRune(key, zwj)
	parts := make([]string, 0, len(runes))
	for _, r := range runes {
		if r == vs16 && !keepVS {
			continue
		}
		parts = append(parts, strconv.FormatInt(int64(r), 16))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "-") + ".png"
}

// candidates 返回查找字形时依次尝试的文件名。
func candidates(key string) []string {
	name := FileName(key)
	if name == "" {
		return nil
	}
	out := []string{name}
	if strings.ContainsRune(key, vs16) {
		if alt := FileName(strings.ReplaceAll(key, string(rune(vs16)), "")); alt != "" && alt != name {
			out = append(out, alt)
		}
	}
	return out
}
