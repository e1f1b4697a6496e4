// Package templates 内置常用卡片的 DSL 与示例数据，CLI 以 "builtin:<name>" 引用。
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/inkcard/dsl"
)

//go:embed cards/*.card cards/*.yaml
var cardFS embed.FS

// Prefix 标记内置模板的输入路径。
const Prefix = "builtin:"

// Names 返回全部内置模板名，按字母排序。
func Names() []string {
	entries, err := fs.ReadDir(cardFS, "cards")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".card"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Source 返回模板的 DSL 原文。name 可以带 "builtin:" 前缀。
func Source(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, Prefix)
	data, err := cardFS.ReadFile(path.Join("cards", name+".card"))
	if err != nil {
		return nil, fmt.Errorf("未知的内置模板 %s（可用: %s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Load 解析内置模板。
func Load(name string) (*dsl.Document, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	doc, err := dsl.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("解析内置模板 %s 失败: %w", name, err)
	}
	return doc, nil
}

// Sample 返回模板附带的示例数据，没有示例时返回 nil。
func Sample(name string) (map[string]any, error) {
	name = strings.TrimPrefix(name, Prefix)
	data, err := cardFS.ReadFile(path.Join("cards", name+".yaml"))
	if err != nil {
		return nil, nil
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析模板 %s 的示例数据失败: %w", name, err)
	}
	return out, nil
}

// IsBuiltin 判断输入路径是否引用内置模板。
func IsBuiltin(input string) bool { return strings.HasPrefix(input, Prefix) }
