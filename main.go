package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/inkcard/dsl"
	"github.com/ByLCY/inkcard/emoji"
	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/layout"
	canvasrenderer "github.com/ByLCY/inkcard/renderer/canvas"
	"github.com/ByLCY/inkcard/richtext"
	"github.com/ByLCY/inkcard/templates"
)

// config 汇总命令行参数。
type config struct {
	input         string
	output        string
	debug         string
	debugRawUnits bool
	dataJSON      string
	dataFile      string
	emojiDir      string
	card          string
	stray         string
	scale         float64
	dryRun        bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "builtin:story", "DSL 文件路径，或 builtin:<模板名>")
	flag.StringVar(&cfg.output, "out", "output/card.png", "输出路径（.png 或 .pdf）")
	flag.StringVar(&cfg.debug, "debug", "", "布局调试 JSON 输出路径，- 表示标准输出")
	flag.BoolVar(&cfg.debugRawUnits, "debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	flag.StringVar(&cfg.dataJSON, "data", "", "绑定到 DSL 的 JSON 数据")
	flag.StringVar(&cfg.dataFile, "data-file", "", "绑定数据文件（YAML 或 JSON）")
	flag.StringVar(&cfg.emojiDir, "emoji-dir", "", "emoji 字形 PNG 目录（twemoji 命名）")
	flag.StringVar(&cfg.card, "card", "", "只渲染指定名称的卡片")
	flag.StringVar(&cfg.stray, "stray", "drop", "未配对标记符的处理方式：drop 或 literal")
	flag.Float64Var(&cfg.scale, "scale", 1, "PNG 栅格化倍率")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "只打印排版结果，不输出图片")
	watch := flag.Bool("watch", false, "监听输入文件变化并自动重新生成")
	list := flag.Bool("list", false, "列出内置模板与字体")
	flag.Parse()

	if *list {
		printList(os.Stdout)
		return
	}

	if err := run(cfg); err != nil {
		if !*watch {
			log.Fatalf("生成失败: %v", err)
		}
		log.Printf("生成失败: %v", err)
	}
	if *watch {
		if err := watchAndRun(cfg, func() error { return run(cfg) }); err != nil {
			log.Fatalf("监听失败: %v", err)
		}
	}
}

// run 串联解析、绑定、布局与渲染。
func run(cfg config) error {
	doc, err := loadDocument(cfg.input)
	if err != nil {
		return err
	}
	data, err := loadData(cfg)
	if err != nil {
		return err
	}
	stray, err := richtext.ParseStrayPolicy(cfg.stray)
	if err != nil {
		return err
	}

	opts := canvasrenderer.Options{BaseDir: baseDir(cfg.input), Scale: cfg.scale}
	if cfg.emojiDir != "" {
		opts.EmojiFS = os.DirFS(cfg.emojiDir)
	}
	if !cfg.dryRun {
		format, err := canvasrenderer.FormatFromPath(cfg.output)
		if err != nil {
			return err
		}
		opts.Format = format
	}
	r := canvasrenderer.NewRendererWithOptions(opts)

	buildOpts := layout.BuildOptions{
		Typesetter: r,
		Engine:     richtext.New(richtext.Options{Emoji: emoji.Locator{}, Stray: stray}),
		Card:       cfg.card,
		Debug:      layout.DebugOptions{RawUnits: cfg.debugRawUnits},
	}
	if cfg.dryRun {
		buildOpts.Typesetter = sfntTypesetter{images: r, baseDir: opts.BaseDir}
	}
	result, err := layout.Build(doc, data, buildOpts)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if cfg.debug != "" {
		if err := writeDebug(result, cfg.debug); err != nil {
			return err
		}
	}
	if cfg.dryRun {
		printLayout(os.Stdout, result)
		return nil
	}
	return writeOutput(r, result, cfg.output, opts.Format)
}

func loadDocument(input string) (*dsl.Document, error) {
	if templates.IsBuiltin(input) {
		return templates.Load(input)
	}
	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("无法打开 DSL 文件 %s: %w", input, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return doc, nil
}

// loadData 依次合并模板示例、数据文件与 -data JSON，后者覆盖前者的顶层键。
func loadData(cfg config) (any, error) {
	data := map[string]any{}
	if templates.IsBuiltin(cfg.input) {
		sample, err := templates.Sample(cfg.input)
		if err != nil {
			return nil, err
		}
		for k, v := range sample {
			data[k] = v
		}
	}
	if cfg.dataFile != "" {
		raw, err := os.ReadFile(cfg.dataFile)
		if err != nil {
			return nil, fmt.Errorf("读取数据文件失败: %w", err)
		}
		var fileData map[string]any
		if err := yaml.Unmarshal(raw, &fileData); err != nil {
			return nil, fmt.Errorf("解析数据文件 %s 失败: %w", cfg.dataFile, err)
		}
		for k, v := range fileData {
			data[k] = v
		}
	}
	if cfg.dataJSON != "" {
		var inline map[string]any
		if err := json.Unmarshal([]byte(cfg.dataJSON), &inline); err != nil {
			return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
		for k, v := range inline {
			data[k] = v
		}
	}
	return data, nil
}

func baseDir(input string) string {
	if templates.IsBuiltin(input) {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	}
	return filepath.Dir(input)
}

// writeOutput 写出结果。PDF 每张卡片一页；PNG 只有一张卡片时写到 outputPath，
// 多张时按 <name>-<card>.png 分别写出。
func writeOutput(r *canvasrenderer.Renderer, result *layout.Result, outputPath string, format canvasrenderer.Format) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if format == canvasrenderer.FormatPDF || len(result.Cards) == 1 {
		out, err := r.Render(result)
		if err != nil {
			return fmt.Errorf("渲染失败: %w", err)
		}
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}
		log.Printf("已生成：%s", outputPath)
		return nil
	}

	ext := filepath.Ext(outputPath)
	stem := strings.TrimSuffix(outputPath, ext)
	for i, card := range result.Cards {
		out, err := r.RenderCard(result, i)
		if err != nil {
			return fmt.Errorf("渲染卡片 %s 失败: %w", card.Name, err)
		}
		path := fmt.Sprintf("%s-%s%s", stem, card.Name, ext)
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}
		log.Printf("已生成：%s", path)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if debugPath != "-" {
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return fmt.Errorf("创建调试目录失败: %w", err)
		}
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func printList(w io.Writer) {
	fmt.Fprintln(w, "内置模板：")
	for _, name := range templates.Names() {
		fmt.Fprintf(w, "  %s%s\n", templates.Prefix, name)
	}
	fmt.Fprintln(w, "内置字体：")
	for _, name := range fonts.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
