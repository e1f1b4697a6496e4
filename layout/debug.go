package layout

import (
	"encoding/json"
	"os"
)

// DebugJSON 把布局结果编码为缩进 JSON，片段类型以名称输出。
func DebugJSON(res *Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化；path 为 "-" 时写到标准输出。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := DebugJSON(res)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
