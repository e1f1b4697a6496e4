package richtext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 闭合标记的查找不能跨越这些行终止符。
const lineTerminators = "\r\u2028\u2029"

// markupRule 描述一种成对标记；同一起始字符的规则按更具体者优先排列。
type markupRule struct {
	kind  Kind
	open  string
	close string
}

var markupRules = []markupRule{
	{KindBoldItalic, "*_", "_*"},
	{KindBoldItalic, "_*", "*_"},
	{KindBold, "*", "*"},
	{KindItalic, "_", "_"},
	{KindStrikethrough, "~", "~"},
	{KindMonospace, "```", "```"},
}

func isDelimiter(r rune) bool {
	return r == '*' || r == '_' || r == '~' || r == '`'
}

func isSpace(r rune) bool {
	if r == '\ufeff' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

func isPlain(r rune) bool {
	return !isSpace(r) && !isDelimiter(r)
}

// cursor 是在一段纯文本上的显式扫描位置。
type cursor struct {
	src string
	pos int
}

func (c *cursor) done() bool    { return c.pos >= len(c.src) }
func (c *cursor) rest() string  { return c.src[c.pos:] }
func (c *cursor) advance(n int) { c.pos += n }
func (c *cursor) take(n int) string {
	s := c.src[c.pos : c.pos+n]
	c.pos += n
	return s
}

// markup tries every rule at the current position and returns the first match.
// n is the number of bytes consumed including both delimiters.
func (c *cursor) markup() (kind Kind, content string, n int, ok bool) {
	rest := c.rest()
	for _, rule := range markupRules {
		if !strings.HasPrefix(rest, rule.open) {
			continue
		}
		body := rest[len(rule.open):]
		end := strings.Index(body, rule.close)
		if end < 0 || strings.ContainsAny(body[:end], lineTerminators) {
			continue
		}
		return rule.kind, body[:end], len(rule.open) + end + len(rule.close), true
	}
	return 0, "", 0, false
}

// run returns the byte length of the longest prefix whose runes satisfy pred.
func (c *cursor) run(pred func(rune) bool) int {
	rest := c.rest()
	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if !pred(r) {
			break
		}
		n += size
	}
	return n
}
