package renderer

import "github.com/ByLCY/inkcard/layout"

// Renderer 将布局结果输出为最终文件，例如 PNG 图像或多页 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
