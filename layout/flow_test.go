package layout

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/inkcard/dsl"
)

func TestBuildStackCentersAndClamps(t *testing.T) {
	src := `doc T v1 {
  card c 400 1000 {
    stack x 20 y 50% anchor middle gap 10 fill #000 radius 6 {
      rect x 0 width 100 height 40 fill #f00
      text x 0 height 60 { "a" }
    }
    stack x 20 y after margin 5 width 200 max-bottom -100 {
      rect x 0 height 300 fill #0f0
      rect x 0 height 300 fill #00f
    }
  }
}`
	card := buildCards(t, src, nil, BuildOptions{}).Cards[0]
	var rects []Rect
	for _, p := range card.Paints() {
		if p.Rect != nil {
			rects = append(rects, *p.Rect)
		}
	}
	if len(rects) != 4 {
		t.Fatalf("期望 4 个矩形，得到 %d: %+v", len(rects), rects)
	}
	// 总高 40+10+60，中线落在 500
	bd := rects[0]
	if bd.X != 20 || bd.Y != 445 || bd.Width != 380 || bd.Height != 110 || bd.Radius != 6 || bd.Order != 1 {
		t.Fatalf("stack 底板不正确: %+v", bd)
	}
	if rects[1].X != 20 || rects[1].Y != 445 || rects[1].Width != 100 {
		t.Fatalf("第一个子元素不正确: %+v", rects[1])
	}
	if tb := card.Texts[0]; tb.X != 20 || tb.Y != 495 || tb.Height != 60 {
		t.Fatalf("文本应排在间距之后: x=%g y=%g h=%g", tb.X, tb.Y, tb.Height)
	}
	// 紧接在 555+5 处会超出底边限制 900，整体上移
	if rects[2].Y != 300 || rects[3].Y != 600 || rects[2].Width != 200 {
		t.Fatalf("max-bottom 未生效: %+v %+v", rects[2], rects[3])
	}

	src = `doc T v1 { card d 100 100 { stack y 0 anchor bottom min-y 10 { rect x 0 height 30 fill #000 } } }`
	rc := buildCards(t, src, nil, BuildOptions{}).Cards[0].Rects[0]
	if rc.X != 0 || rc.Y != 10 || rc.Width != 100 {
		t.Fatalf("min-y 未生效: %+v", rc)
	}
}

func TestBuildEachWithLoopVariables(t *testing.T) {
	src := `doc T v1 {
  card c 200 400 {
    stack x 10 y 20 width 100 {
      each item in menu {
        text x 0 height 30 color "${item.color|#FFFFFF}" { "${loop.index}:${item.text}" }
        line float true x1 0 y1 100% x2 100% y2 100% width 2 color #555555 unless "${loop.last}"
      }
    }
  }
}`
	data := map[string]any{"menu": []any{
		map[string]any{"text": "A"},
		map[string]any{"text": "B"},
		map[string]any{"text": "C", "color": "#ff453a"},
	}}
	card := buildCards(t, src, data, BuildOptions{}).Cards[0]
	var got []string
	var ys []float64
	for _, tb := range card.Texts {
		got = append(got, tb.Content)
		ys = append(ys, tb.Y)
	}
	if diff := cmp.Diff([]string{"0:A", "1:B", "2:C"}, got); diff != "" {
		t.Fatalf("循环内容不符 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{20, 50, 80}, ys); diff != "" {
		t.Fatalf("循环项应依次排列 (-want +got):\n%s", diff)
	}
	if card.Texts[0].Color != white || card.Texts[2].Color != (Color{R: 0xff, G: 0x45, B: 0x3a, A: 255}) {
		t.Fatalf("循环项颜色不正确: %+v %+v", card.Texts[0].Color, card.Texts[2].Color)
	}
	if len(card.Lines) != 2 {
		t.Fatalf("最后一项之后不应有分隔线: %+v", card.Lines)
	}
	for i, ln := range card.Lines {
		want := Line{X1: 10, Y1: float64(50 + 30*i), X2: 110, Y2: float64(50 + 30*i), Color: Color{R: 0x55, G: 0x55, B: 0x55, A: 255}, Width: 2, Order: ln.Order}
		if diff := cmp.Diff(want, ln); diff != "" {
			t.Fatalf("分隔线 %d 不符 (-want +got):\n%s", i, diff)
		}
	}

	doc, err := dsl.ParseString(`doc T v1 { card c 10 10 { each x in title { rect x 0 y 0 width 1 height 1 } } }`)
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	_, err = Build(doc, map[string]any{"title": "x"}, BuildOptions{Typesetter: &stubTypesetter{imgW: 10, imgH: 10}})
	if err == nil || !strings.Contains(err.Error(), "不是列表") {
		t.Fatalf("遍历非列表应报错，得到 %v", err)
	}
	if card := buildCards(t, `doc T v1 { card c 10 10 { each x in missing { rect x 0 y 0 width 1 height 1 } } }`, nil, BuildOptions{}).Cards[0]; len(card.Rects) != 0 {
		t.Fatalf("数据中没有列表时应跳过: %+v", card.Rects)
	}
}

func TestBuildGroupFloatAndConditions(t *testing.T) {
	src := `doc T v1 {
  card c 300 200 {
    text x 10 y 20 size 20 hug true { "abcd" }
    group float true x 100% y 0 width 20 height 20 dx 5 dy -2 if "${verified|}" {
      circle cx 10 cy 10 r 10 fill #1D9BF0
    }
    rect x 0 y 100 width 10 height 10 fill #000 unless "${verified|}"
  }
}`
	card := buildCards(t, src, map[string]any{"verified": true}, BuildOptions{}).Cards[0]
	if len(card.Circles) != 1 || len(card.Rects) != 0 {
		t.Fatalf("verified 为真时应只绘制徽章: circles=%d rects=%d", len(card.Circles), len(card.Rects))
	}
	// 文本贴合宽度 40，徽章紧贴其右侧，再平移 (5, -2)
	if c := card.Circles[0]; c.CX != 65 || c.CY != 28 || c.R != 10 {
		t.Fatalf("徽章位置不正确: %+v", c)
	}

	card = buildCards(t, src, map[string]any{"verified": false}, BuildOptions{}).Cards[0]
	if len(card.Circles) != 0 || len(card.Rects) != 1 {
		t.Fatalf("verified 为假时应只绘制矩形: circles=%d rects=%d", len(card.Circles), len(card.Rects))
	}
	card = buildCards(t, src, nil, BuildOptions{}).Cards[0]
	if len(card.Circles) != 0 {
		t.Fatalf("缺少 verified 时不应绘制徽章")
	}

	for v, want := range map[string]bool{"": false, "false": false, "0": false, "true": true, "yes": true} {
		if enabled(v) != want {
			t.Fatalf("enabled(%q) 应为 %v", v, want)
		}
	}
}

func TestBuildTrackingWidensLines(t *testing.T) {
	src := `doc T v1 { card c 400 100 { text x 0 y 0 size 20 tracking 5 inset 4 fill #000 hug true { "ab cd" } } }`
	tb := buildCards(t, src, nil, BuildOptions{}).Cards[0].Texts[0]
	if tb.Tracking != 5 || !tb.Hug {
		t.Fatalf("tracking/hug 未记录: %+v", tb)
	}
	// 三个片段共 50，加两处间距
	if tb.Lines[0].Width != 60 {
		t.Fatalf("行宽应包含字距，得到 %g", tb.Lines[0].Width)
	}
	if tb.Backdrop == nil || tb.Backdrop.Width != 68 {
		t.Fatalf("贴合底板应包含字距: %+v", tb.Backdrop)
	}
}
