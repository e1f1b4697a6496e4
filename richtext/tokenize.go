package richtext

import (
	"fmt"
	"strings"
)

// Tokenize 把文本切分为带宽度的片段。
//
// 文本按 \n 拆行，行与行之间插入换行片段；每行先划出 emoji 区间，
// 区间之间的纯文本再按标记规则扫描。测量器缺失时返回 ErrNoMeasurer；
// 其他故障记录日志并以空片段加 Fault 的形式返回，让渲染继续。
func (e *Engine) Tokenize(text string, m Measurer, fontSize float64) (Tokens, error) {
	if !usable(m) {
		return Tokens{}, ErrNoMeasurer
	}
	segs, err := e.tokenize(text, m, fontSize)
	if err != nil {
		e.logf("切分文本失败: %v", err)
		return Tokens{Segments: []Segment{}, Fault: err}, nil
	}
	return Tokens{Segments: segs}, nil
}

func (e *Engine) tokenize(text string, m Measurer, fontSize float64) (segs []Segment, err error) {
	defer recoverFault("tokenize", &err)
	if !validSize(fontSize) {
		return nil, fmt.Errorf("%w: 字号 %g", ErrInvalidInput, fontSize)
	}

	g := &gauge{m: m, size: fontSize}
	lines := strings.Split(text, "\n")
	segs = make([]Segment, 0, len(lines)*4)
	for i, line := range lines {
		if line != "" {
			segs = e.tokenizeLine(segs, line, g)
			if g.err != nil {
				return nil, g.err
			}
		}
		if i < len(lines)-1 {
			segs = append(segs, Segment{Kind: KindNewline, Content: "\n"})
		}
	}
	return segs, nil
}

func (e *Engine) tokenizeLine(out []Segment, line string, g *gauge) []Segment {
	last := 0
	for _, span := range e.spans(line) {
		out = e.scanChunk(out, line[last:span.Offset], g)
		key := span.Key
		if key == "" {
			key = line[span.Offset : span.Offset+span.Length]
		}
		out = append(out, Segment{Kind: KindEmoji, Content: key, Width: g.size * EmojiScale})
		last = span.Offset + span.Length
	}
	if last < len(line) {
		out = e.scanChunk(out, line[last:], g)
	}
	return out
}

// spans 调用 emoji 定位器，并丢弃越界、重叠或乱序的区间。
func (e *Engine) spans(line string) []Span {
	if e.opts.Emoji == nil {
		return nil
	}
	found := e.opts.Emoji.Locate(line)
	if len(found) == 0 {
		return nil
	}
	valid := found[:0:0]
	end := 0
	for _, sp := range found {
		if sp.Offset < end || sp.Length <= 0 || sp.Offset+sp.Length > len(line) {
			e.logf("忽略无效的 emoji 区间 %+v（行长 %d）", sp, len(line))
			continue
		}
		valid = append(valid, sp)
		end = sp.Offset + sp.Length
	}
	return valid
}

// scanChunk 按规则顺序扫描一段不含 emoji 的纯文本。
func (e *Engine) scanChunk(out []Segment, chunk string, g *gauge) []Segment {
	if chunk == "" {
		return out
	}
	literal := e.opts.Stray == StrayLiteral
	var pending strings.Builder

	flush := func() {
		if pending.Len() == 0 {
			return
		}
		s := pending.String()
		out = append(out, Segment{Kind: KindText, Content: s, Width: g.width(s, KindText)})
		pending.Reset()
	}
	emit := func(kind Kind, content string) {
		flush()
		out = append(out, Segment{Kind: kind, Content: content, Width: g.width(content, kind)})
	}

	c := &cursor{src: chunk}
	for !c.done() {
		if kind, content, n, ok := c.markup(); ok {
			emit(kind, content)
			c.advance(n)
			continue
		}
		if n := c.run(isSpace); n > 0 {
			emit(KindWhitespace, c.take(n))
			continue
		}
		if n := c.run(isPlain); n > 0 {
			if literal {
				pending.WriteString(c.take(n))
			} else {
				emit(KindText, c.take(n))
			}
			continue
		}
		// 无法配对的标记符
		if literal {
			pending.WriteString(c.take(1))
		} else {
			c.advance(1)
		}
	}
	flush()
	return out
}
