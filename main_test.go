package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
	"github.com/ByLCY/inkcard/templates"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 40, G: 80, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("编码测试图片失败: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestLoadDataMergesSources(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data.yaml")
	if err := os.WriteFile(dataFile, []byte("comment: from yaml\ntime: \"12:00\"\n"), 0o644); err != nil {
		t.Fatalf("写入数据文件失败: %v", err)
	}
	data, err := loadData(config{
		input:    "builtin:tweet",
		dataFile: dataFile,
		dataJSON: `{"time": "13:00"}`,
	})
	if err != nil {
		t.Fatalf("loadData error: %v", err)
	}
	m := data.(map[string]any)
	got := map[string]any{"comment": m["comment"], "time": m["time"]}
	want := map[string]any{"comment": "from yaml", "time": "13:00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("数据合并结果不符 (-want +got):\n%s", diff)
	}
	if _, ok := m["user"]; !ok {
		t.Fatalf("应保留模板示例数据中的 user")
	}

	if _, err := loadData(config{dataJSON: "{"}); err == nil {
		t.Fatalf("非法 JSON 应报错")
	}
}

func TestRunWritesPNGPerCardAndPDF(t *testing.T) {
	dir := t.TempDir()
	src := `doc Multi v1 {
  card first 120 60 {
    background: #ffffff
    text x 10 y 10 { "${greeting}" }
  }
  card second 80 80 {
    background: #000000
    circle cx 40 cy 40 r 20 fill #ff0000
  }
}`
	input := filepath.Join(dir, "multi.card")
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatalf("写入 DSL 失败: %v", err)
	}

	cfg := config{input: input, output: filepath.Join(dir, "out", "multi.png"), dataJSON: `{"greeting": "hi"}`, stray: "drop", scale: 1}
	if err := run(cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	for _, name := range []string{"multi-first.png", "multi-second.png"} {
		raw, err := os.ReadFile(filepath.Join(dir, "out", name))
		if err != nil {
			t.Fatalf("缺少输出 %s: %v", name, err)
		}
		if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
			t.Fatalf("%s 不是合法 PNG: %v", name, err)
		}
	}

	cfg.output = filepath.Join(dir, "out", "multi.pdf")
	if err := run(cfg); err != nil {
		t.Fatalf("run pdf error: %v", err)
	}
	raw, err := os.ReadFile(cfg.output)
	if err != nil || !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Fatalf("PDF 输出不正确: %v", err)
	}

	cfg.card = "second"
	cfg.output = filepath.Join(dir, "out", "only.png")
	cfg.debug = filepath.Join(dir, "out", "only.json")
	if err := run(cfg); err != nil {
		t.Fatalf("run single card error: %v", err)
	}
	if _, err := os.Stat(cfg.output); err != nil {
		t.Fatalf("只有一张卡片时应直接写到输出路径: %v", err)
	}
	if _, err := os.Stat(cfg.debug); err != nil {
		t.Fatalf("缺少调试 JSON: %v", err)
	}

	cfg.output = filepath.Join(dir, "out", "bad.svg")
	if err := run(cfg); err == nil {
		t.Fatalf("不支持的输出格式应报错")
	}
	cfg.output = filepath.Join(dir, "out", "x.png")
	cfg.stray = "nope"
	if err := run(cfg); err == nil {
		t.Fatalf("未知的标记符策略应报错")
	}
}

func TestDryRunBuiltinTemplates(t *testing.T) {
	img := pngDataURI(t, 1080, 1920)
	for _, name := range templates.Names() {
		cfg := config{
			input:    templates.Prefix + name,
			dataJSON: fmt.Sprintf(`{"background": %q, "image": %q}`, img, img),
			stray:    "drop",
			dryRun:   true,
		}
		if err := run(cfg); err != nil {
			t.Fatalf("模板 %s 排版失败: %v", name, err)
		}
	}
}

func TestPrintLayoutMarksSegmentKinds(t *testing.T) {
	res := &layout.Result{Cards: []layout.Card{{
		Name: "c", Width: 100, Height: 50,
		Texts: []layout.TextBox{{
			FontSize: 20, LineHeight: 26,
			Lines: []layout.TextLine{{Width: 42, Segments: richtext.Line{
				{Kind: richtext.KindText, Content: "a"},
				{Kind: richtext.KindWhitespace, Content: " "},
				{Kind: richtext.KindBold, Content: "b"},
			}}},
		}},
	}}}
	var buf bytes.Buffer
	printLayout(&buf, res)
	out := buf.String()
	if !strings.Contains(out, "card c 100x50") || !strings.Contains(out, "a [bold]b") {
		t.Fatalf("输出不符:\n%s", out)
	}
}

func TestPrintList(t *testing.T) {
	var buf bytes.Buffer
	printList(&buf)
	for _, want := range []string{"builtin:story", "builtin:tweet", "embed:go/regular"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("列表中缺少 %s:\n%s", want, buf.String())
		}
	}
}
