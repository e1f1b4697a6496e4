package templates

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/inkcard/layout"
	"github.com/ByLCY/inkcard/richtext"
)

type stubTypesetter struct{ imgW, imgH int }

func (stubTypesetter) MeasurerFor(layout.FontResource) (richtext.Measurer, error) {
	return richtext.MeasureFunc(func(text string, kind richtext.Kind, size float64) float64 {
		if kind == richtext.KindEmoji {
			return size * richtext.EmojiScale
		}
		return float64(utf8.RuneCountInString(text)) * size / 2
	}), nil
}

func (s stubTypesetter) ImageSize(string) (int, int, error) { return s.imgW, s.imgH, nil }

func buildTemplate(t *testing.T, name string, extra map[string]any) layout.Card {
	t.Helper()
	doc, err := Load(Prefix + name)
	if err != nil {
		t.Fatalf("加载模板 %s 失败: %v", name, err)
	}
	data, err := Sample(name)
	if err != nil {
		t.Fatalf("读取示例数据失败: %v", err)
	}
	if data == nil {
		t.Fatalf("模板 %s 缺少示例数据", name)
	}
	for k, v := range extra {
		data[k] = v
	}
	res, err := layout.Build(doc, data, layout.BuildOptions{Typesetter: stubTypesetter{imgW: 1080, imgH: 1920}})
	if err != nil {
		t.Fatalf("模板 %s 布局失败: %v", name, err)
	}
	if len(res.Cards) != 1 {
		t.Fatalf("模板 %s 应只有一张卡片，得到 %d", name, len(res.Cards))
	}
	return res.Cards[0]
}

func TestNames(t *testing.T) {
	want := []string{"chat", "meme", "quote", "story", "tweet"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Fatalf("模板列表不符 (-want +got):\n%s", diff)
	}
	if _, err := Load("builtin:nope"); err == nil {
		t.Fatalf("未知模板应报错")
	}
	if data, err := Sample("nope"); data != nil || err != nil {
		t.Fatalf("没有示例数据时应返回 nil: %v %v", data, err)
	}
	if !IsBuiltin("builtin:story") || IsBuiltin("story.card") {
		t.Fatalf("IsBuiltin 判断错误")
	}
}

func TestStoryTemplate(t *testing.T) {
	card := buildTemplate(t, "story", map[string]any{"background": "beach.jpg"})
	if card.Width != 1080 || card.Height != 1080 {
		t.Fatalf("快拍应为 1080 正方形，得到 %gx%g", card.Width, card.Height)
	}
	if len(card.Images) != 1 || card.Images[0].Path != "beach.jpg" {
		t.Fatalf("没有头像时只应有背景图: %+v", card.Images)
	}
	caption := card.Texts[len(card.Texts)-1]
	if !caption.Fitted || caption.FontSize > 42 || caption.FontSize < 10 {
		t.Fatalf("标题应在 42 到 10 之间适配: %+v", caption)
	}
	if caption.Shadow == nil {
		t.Fatalf("标题应带阴影")
	}
}

func TestTweetTemplateGrows(t *testing.T) {
	card := buildTemplate(t, "tweet", nil)
	var comment *layout.TextBox
	for i := range card.Texts {
		if card.Texts[i].LineHeight == 40 {
			comment = &card.Texts[i]
		}
	}
	if comment == nil || len(comment.Lines) < 2 {
		t.Fatalf("示例评论应折成多行: %+v", comment)
	}
	if want := 240 + float64(len(comment.Lines))*40; card.Height != want {
		t.Fatalf("卡片高度应为 %g，得到 %g", want, card.Height)
	}
	rule := card.Lines[len(card.Lines)-1]
	if rule.X1 != 40 || rule.Y1 != card.Height-80 {
		t.Fatalf("分隔线应位于底部上方 80: %+v", card.Lines)
	}
	if card.Background == nil || *card.Background != (layout.Color{R: 0x15, G: 0x20, B: 0x2B, A: 255}) {
		t.Fatalf("背景色不正确: %+v", card.Background)
	}
}

func TestChatTemplateBubble(t *testing.T) {
	card := buildTemplate(t, "chat", nil)
	if card.Width != 1320 || card.Height != 2868 {
		t.Fatalf("聊天截图尺寸不正确: %gx%g", card.Width, card.Height)
	}
	var bubble, reactions *layout.TextBox
	for i := range card.Texts {
		tb := &card.Texts[i]
		switch {
		case tb.Backdrop != nil && tb.Backdrop.Radius == 45:
			bubble = tb
		case tb.FontSize == 65:
			reactions = tb
		}
	}
	if bubble == nil || reactions == nil {
		t.Fatalf("缺少消息气泡或表情回应栏")
	}
	if !approx(bubble.LineHeight, 52*1.4) || len(bubble.Lines) != 2 {
		t.Fatalf("气泡布局不正确: %+v", bubble)
	}
	if len(card.Images) != 0 {
		t.Fatalf("没有壁纸时不应绘制图片: %+v", card.Images)
	}
	if got := len(card.EmojiKeys()); got < 8 {
		t.Fatalf("表情回应栏应识别出至少 8 个 emoji，得到 %d", got)
	}

	// 回应栏宽度由 8 个 emoji、7 处字距与两侧内边距组成
	bar := reactions.Backdrop
	if bar == nil || !approx(bar.X, 40) || !approx(bar.Width, 8*65*1.2+7*20+30) || bar.Height != 110 {
		t.Fatalf("回应栏底板不正确: %+v", bar)
	}
	// 回应栏与气泡作为一个整体垂直居中
	blockH := 110 + 20 + bubble.Height
	if !approx(reactions.Y, (card.Height-blockH)/2) || !approx(bubble.Y, reactions.Y+130) {
		t.Fatalf("回应栏与气泡应垂直居中: bar=%g bubble=%g h=%g", reactions.Y, bubble.Y, blockH)
	}

	var menu *layout.Rect
	for i := range card.Rects {
		if card.Rects[i].Radius == 40 {
			menu = &card.Rects[i]
		}
	}
	if menu == nil {
		t.Fatalf("缺少长按菜单")
	}
	if !approx(menu.Y, bubble.Y+bubble.Height+20) || !approx(menu.Width, 546.67) || menu.Height != 7*110 {
		t.Fatalf("菜单位置不正确: %+v", menu)
	}
	if menu.FillColor == nil || *menu.FillColor != (layout.Color{R: 0x27, G: 0x2A, B: 0x2F, A: 0xD9}) {
		t.Fatalf("菜单底色不正确: %+v", menu.FillColor)
	}

	var items []string
	var separators []layout.Line
	for _, p := range card.Paints() {
		if p.Order <= menu.Order {
			continue
		}
		switch {
		case p.Text != nil && p.Text.FontSize == 50:
			items = append(items, p.Text.Content)
			if p.Text.Content == "Delete" && p.Text.Color != (layout.Color{R: 0xff, G: 0x45, B: 0x3a, A: 255}) {
				t.Fatalf("Delete 应为红色: %+v", p.Text.Color)
			}
		case p.Line != nil:
			separators = append(separators, *p.Line)
		}
	}
	want := []string{"Reply", "Forward", "Copy", "Star", "Pin", "Report", "Delete"}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("菜单项不符 (-want +got):\n%s", diff)
	}
	if len(separators) != 6 {
		t.Fatalf("7 个菜单项之间应有 6 条分隔线，得到 %d", len(separators))
	}
	for i, ln := range separators {
		y := menu.Y + float64(i+1)*110
		if ln.Width != 2 || !approx(ln.Y1, y) || !approx(ln.Y2, y) || ln.X1 != 80 || !approx(ln.X2, 546.67) {
			t.Fatalf("分隔线 %d 不正确: %+v", i, ln)
		}
		if ln.Color != (layout.Color{R: 0x55, G: 0x55, B: 0x55, A: 255}) {
			t.Fatalf("分隔线颜色不正确: %+v", ln.Color)
		}
	}
}

func TestTweetTemplateVerifiedBadge(t *testing.T) {
	card := buildTemplate(t, "tweet", nil)
	var name *layout.TextBox
	for i := range card.Texts {
		if card.Texts[i].Content == "Lin Ying" {
			name = &card.Texts[i]
		}
	}
	if name == nil || len(name.Lines) != 1 {
		t.Fatalf("缺少用户名: %+v", name)
	}
	if len(card.Circles) != 1 || len(card.Lines) != 3 {
		t.Fatalf("认证徽章应包含一个圆与两笔对勾: circles=%d lines=%d", len(card.Circles), len(card.Lines))
	}
	// 徽章紧跟在用户名之后 10 像素处
	badge := card.Circles[0]
	right := name.Lines[0].X + name.Lines[0].Width
	if !approx(badge.CX, right+10+15) || !approx(badge.CY, name.Y+3+15) || badge.R != 15 {
		t.Fatalf("徽章位置不正确: %+v name right=%g", badge, right)
	}

	card = buildTemplate(t, "tweet", map[string]any{"verified": false})
	if len(card.Circles) != 0 || len(card.Lines) != 1 {
		t.Fatalf("未认证时不应绘制徽章: circles=%d lines=%d", len(card.Circles), len(card.Lines))
	}
}

func TestMemeTemplateAnchorsBottom(t *testing.T) {
	card := buildTemplate(t, "meme", map[string]any{"image": "cat.png"})
	if card.Width != 1080 || card.Height != 1080 || len(card.Texts) != 2 {
		t.Fatalf("表情包布局不正确: %gx%g texts=%d", card.Width, card.Height, len(card.Texts))
	}
	for _, tb := range card.Texts {
		if tb.Outline == nil || tb.Outline.Width != 4 || tb.Font != "Impact" {
			t.Fatalf("字幕应使用 Impact 黑色描边: %+v", tb)
		}
	}
	bottom := card.Texts[1]
	last := bottom.Lines[len(bottom.Lines)-1]
	if !approx(last.Y+last.Height, card.Height-50) {
		t.Fatalf("底部字幕应贴住距底 50 处，得到 %g", last.Y+last.Height)
	}
}

func TestQuoteTemplateHighlights(t *testing.T) {
	card := buildTemplate(t, "quote", map[string]any{"image": "paper.png"})
	body := card.Texts[len(card.Texts)-1]
	if len(body.Highlights) != len(body.Lines) || len(body.Lines) == 0 {
		t.Fatalf("每行都应有高亮: lines=%d highlights=%d", len(body.Lines), len(body.Highlights))
	}
	if !approx(body.Y, 1920*0.35) || !approx(body.Width, 1080*0.7) {
		t.Fatalf("正文位置不正确: y=%g w=%g", body.Y, body.Width)
	}
	if len(card.Rects) != 1 || card.Rects[0].FillColor == nil || *card.Rects[0].FillColor != (layout.Color{R: 0, G: 0xB8, B: 0x94, A: 255}) {
		t.Fatalf("引号方块不正确: %+v", card.Rects)
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }
