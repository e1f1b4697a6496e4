package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/inkcard/binding"
	"github.com/ByLCY/inkcard/dsl"
	"github.com/ByLCY/inkcard/emoji"
	"github.com/ByLCY/inkcard/fonts"
	"github.com/ByLCY/inkcard/richtext"
)

// Build 根据 DSL AST 生成卡片、文本行、图片与形状的布局结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	engine := opts.Engine
	if engine == nil {
		engine = richtext.New(richtext.Options{Emoji: emoji.Locator{}})
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc, data)

	measurers := map[string]richtext.Measurer{}
	var cards []Card
	for _, section := range doc.Sections {
		if section.Card == nil {
			continue
		}
		if opts.Card != "" && section.Card.Name != opts.Card {
			continue
		}
		b := &cardBuilder{
			res:       res,
			data:      data,
			opts:      opts,
			engine:    engine,
			measurers: measurers,
		}
		card, err := b.build(section.Card)
		if err != nil {
			return nil, fmt.Errorf("卡片 %s: %w", section.Card.Name, err)
		}
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		if opts.Card != "" {
			return nil, fmt.Errorf("文档中没有名为 %s 的卡片", opts.Card)
		}
		return nil, fmt.Errorf("文档中缺少 card 段落")
	}

	return &Result{
		Cards:     cards,
		Resources: res,
		Meta:      meta,
	}, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Images: map[string]ImageResource{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, decl := range section.Resources.Decls {
			switch {
			case decl.Font != nil:
				font := parseFontResource(decl.Font)
				res.Fonts[font.Name] = font
			case decl.Color != nil:
				value := valueToString(decl.Color.Value)
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("颜色资源 %s: %w", decl.Color.Name, err)
				}
				res.Colors[decl.Color.Name] = c
			case decl.Image != nil:
				image := ImageResource{Name: decl.Image.Name}
				if v, ok := decl.Image.Props.Get("src"); ok {
					image.Src = valueToString(v)
				}
				res.Images[image.Name] = image
			case decl.Style != nil:
				style := parseStyleResource(decl.Style)
				rawStyles[style.Name] = style
			}
		}
	}

	if _, ok := res.Fonts[defaultFontName]; !ok {
		res.Fonts[defaultFontName] = FontResource{
			Name:       defaultFontName,
			Src:        fonts.Regular,
			Bold:       fonts.Bold,
			Italic:     fonts.Italic,
			BoldItalic: fonts.BoldItalic,
			Mono:       fonts.Mono,
		}
	}

	resolvedStyles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolvedStyles

	return res, nil
}

const defaultFontName = "Body"

func collectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{
		Creator: "Inkcard",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Props == nil {
			continue
		}
		for _, entry := range section.Meta.Props.Entries {
			switch strings.ToLower(entry.Key) {
			case "title":
				meta.Title = binding.Interpolate(valueToString(entry.Value), data)
			case "author":
				meta.Author = binding.Interpolate(valueToString(entry.Value), data)
			case "subject":
				meta.Subject = binding.Interpolate(valueToString(entry.Value), data)
			case "creator":
				meta.Creator = valueToString(entry.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(entry.Value)
			}
		}
	}
	return meta
}

func parseFontResource(decl *dsl.FontDecl) FontResource {
	font := FontResource{Name: decl.Name}
	if decl.Faces == nil {
		return font
	}
	for _, entry := range decl.Faces.Entries {
		src := valueToString(entry.Value)
		switch entry.Key {
		case "src", "regular":
			font.Src = src
		case "bold":
			font.Bold = src
		case "italic":
			font.Italic = src
		case "bolditalic", "bold-italic":
			font.BoldItalic = src
		case "mono", "monospace":
			font.Mono = src
		}
	}
	return font
}

func parseStyleResource(decl *dsl.StyleDecl) Style {
	style := Style{
		Name:    decl.Name,
		Extends: decl.Extends,
		Props:   map[string]string{},
	}
	if decl.Props == nil {
		return style
	}
	for _, entry := range decl.Props.Entries {
		if val := valueToString(entry.Value); val != "" {
			style.Props[entry.Key] = val
		}
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// parseArgs 把命令参数解析为键值对。参数个数为奇数且 allowLead 为真时，
// 第一个参数是前导名（文本的样式名或图片的资源名）。
func parseArgs(args []*dsl.Lexeme, allowLead bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var lead string
	if allowLead && len(args)%2 == 1 {
		lead = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		key := args[cursor].Value
		val := args[cursor+1].Value
		result[key] = val
		cursor += 2
	}

	return lead, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if style != "" {
		if s, ok := styles[style]; ok {
			for k, v := range s.Props {
				out[k] = v
			}
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts[defaultFontName]; ok {
		return font, nil
	}
	return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch strings.ToLower(align) {
	case "center", "middle":
		return (container - width) / 2
	case "right", "end":
		return container - width
	default:
		return 0
	}
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
