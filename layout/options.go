package layout

import "github.com/ByLCY/inkcard/richtext"

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	// Engine 负责富文本切分与折行，为空时使用识别 emoji 的默认引擎。
	Engine *richtext.Engine
	// Card 非空时只构建同名卡片。
	Card  string
	Debug DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Typesetter 为布局提供字体测量与图片尺寸查询。
type Typesetter interface {
	// MeasurerFor 返回按像素测量 font 各字形变体宽度的测量器。
	MeasurerFor(font FontResource) (richtext.Measurer, error)
	// ImageSize 返回图片的像素尺寸。
	ImageSize(src string) (width, height int, err error)
}
