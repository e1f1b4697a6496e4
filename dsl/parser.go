package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	cardLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:px|pt|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenKinds = map[lexer.TokenType]string{}

	documentParser = participle.MustBuild[Document](
		participle.Lexer(cardLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

func init() {
	for name, tt := range cardLexer.Symbols() {
		tokenKinds[tt] = name
	}
}

// Document 是卡片 DSL 文件的根节点：`doc <Name> <version> { ... }`。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Section 是顶层段落，三个字段恰有一个非空。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Card      *CardSection      `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Card != nil:
		return "card"
	default:
		return "unknown"
	}
}

// MetaSection 收集文档属性（title/author/subject/creator/keywords）。
type MetaSection struct {
	Props *Props `parser:"'meta' Newline* @@"`
}

// ResourcesSection 声明字体、颜色、图片与样式。
type ResourcesSection struct {
	Decls []*Resource `parser:"'resources' Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Resource 是一条资源声明。
type Resource struct {
	Font  *FontDecl  `parser:"  @@"`
	Color *ColorDecl `parser:"| @@"`
	Image *ImageDecl `parser:"| @@"`
	Style *StyleDecl `parser:"| @@"`
}

// FontDecl: `font Body { src: "..."; bold: "..." }`。
type FontDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'font' @Ident"`
	Faces *Props         `parser:"Newline* @@"`
}

// ColorDecl: `color Accent = #00B894`。
type ColorDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'color' @Ident '='"`
	Value *Value         `parser:"@@"`
}

// ImageDecl: `image bg { src: "${background}" }`。
type ImageDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'image' @Ident"`
	Props *Props         `parser:"Newline* @@"`
}

// StyleDecl: `style Caption [extends Base] { size: 42; ... }`。
type StyleDecl struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'style' @Ident"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Props   *Props         `parser:"Newline* @@"`
}

// Props 是只含 `key: value` 的花括号块。
type Props struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( ';' | ',' | Newline )* )* '}'"`
}

// Get 返回最后一个名为 key 的属性值。
func (p *Props) Get(key string) (*Value, bool) {
	if p == nil {
		return nil, false
	}
	var found *Value
	for _, e := range p.Entries {
		if e.Key == key {
			found = e.Value
		}
	}
	return found, found != nil
}

// CardSection 描述一张合成图片：
//
//	card <name> [<width> <height>] [from <image>] [square] { ... }
type CardSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"'card' @Ident"`
	Size   *CardSize      `parser:"@@?"`
	From   *Source        `parser:"( 'from' @@ )?"`
	Square bool           `parser:"@'square'?"`
	Block  *Block         `parser:"Newline* @@"`
}

// CardSize 是卡片的宽和高，可以是数值或带 ${...} 的字符串。
type CardSize struct {
	Width  *Dimension `parser:"@@"`
	Height *Dimension `parser:"@@"`
}

// Dimension 是一个尺寸值。
type Dimension struct {
	Number *string        `parser:"  @Number"`
	Bound  *StringLiteral `parser:"| @String"`
}

func (d *Dimension) String() string {
	switch {
	case d == nil:
		return ""
	case d.Number != nil:
		return *d.Number
	case d.Bound != nil:
		return string(*d.Bound)
	}
	return ""
}

// Source 引用图片资源名或直接给出路径。
type Source struct {
	Name    *string        `parser:"  @Ident"`
	Literal *StringLiteral `parser:"| @String"`
}

func (s *Source) String() string {
	switch {
	case s == nil:
		return ""
	case s.Name != nil:
		return *s.Name
	case s.Literal != nil:
		return string(*s.Literal)
	}
	return ""
}

// Block 是卡片或容器内的语句列表。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 是块中的一条语句，只有一个字段非空。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Each       *Each        `parser:"| @@"`
	Container  *Container   `parser:"| @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Each 对数据中的列表逐项执行语句块：`each item in path.to.list { ... }`。
type Each struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Var  string         `parser:"'each' @Ident 'in'"`
	Path []string       `parser:"@Ident ( '.' @Ident )*"`
	Body *Block         `parser:"Newline* @@"`
}

// Container 把一组语句放进同一个参照框：stack 纵向依次排列，group 共用同一原点。
type Container struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Kind string         `parser:"@( 'stack' | 'group' )"`
	Args []*Lexeme      `parser:"@@*"`
	Body *Block         `parser:"Newline* @@"`
}

// Command 是绘制指令（text/image/rect/circle/line）。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// TextLiteral 是 text 指令块中的字符串内容。
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是属性值。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Expression 原样保留一串词法单元，例如 `true` 或 `contrast:Accent`。
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	depth := 0
	for {
		tok := lex.Peek()
		if ends(tok, depth, true) {
			break
		}
		l, err := nextLexeme(lex)
		if err != nil {
			return err
		}
		switch l.Raw {
		case "(", "[":
			depth++
		case ")", "]":
			if depth > 0 {
				depth--
			}
		}
		e.Parts = append(e.Parts, l)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

// Lexeme 是指令参数中的单个词法单元。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable so Lexeme can act as a grammar atom.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if ends(lex.Peek(), 0, false) {
		return participle.NextMatch
	}
	next, err := nextLexeme(lex)
	if err != nil {
		return err
	}
	*l = *next
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串缺少内容")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses DSL content from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses DSL content from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// ends 判断 tok 是否结束当前参数列表或表达式：换行、花括号与分号总是结束参数；
// 表达式在括号外还会被逗号或右方括号结束。
func ends(tok *lexer.Token, depth int, expr bool) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tokenKinds[tok.Type] {
	case "Newline", "LBrace", "RBrace":
		return depth == 0
	case "Symbol":
		switch tok.Value {
		case ";":
			return depth == 0
		case ",", "]":
			return expr && depth == 0
		}
	}
	return false
}

func nextLexeme(lex *lexer.PeekingLexer) (*Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return nil, participle.NextMatch
	}
	kind, ok := tokenKinds[tok.Type]
	if !ok {
		kind = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if kind == "String" {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return nil, err
		}
		val = unquoted
	}
	return &Lexeme{Type: kind, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}
