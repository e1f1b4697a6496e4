// Package richtext 把带轻量标记与 emoji 的文本切分为带宽度的片段，
// 并按像素宽度贪心折行，供卡片合成器逐段绘制。
package richtext

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
)

const (
	// EmojiScale 是 emoji 片段宽度相对字号的固定倍数。
	EmojiScale = 1.2
	// LineHeightFactor 是自动适配时行高相对字号的倍数。
	LineHeightFactor = 1.3
	// DefaultFitStep 在 FitParams.Step 非正时使用。
	DefaultFitStep = 2.0
)

var (
	// ErrNoMeasurer 表示宽度测量器缺失，属于集成错误，会直接返回给调用方。
	ErrNoMeasurer = errors.New("richtext: 宽度测量器不可用")
	// ErrInvalidInput marks faults caused by unusable arguments (font size, widths).
	ErrInvalidInput = errors.New("richtext: 输入无效")
	// ErrInternal marks unexpected faults, including panics raised by collaborators.
	ErrInternal = errors.New("richtext: 内部错误")
)

// StrayPolicy 决定无法配对的标记符（如单独的 *）如何处理。
type StrayPolicy int

const (
	// StrayDrop 丢弃无法配对的标记符。
	StrayDrop StrayPolicy = iota
	// StrayLiteral 把无法配对的标记符当作普通文字保留。
	StrayLiteral
)

func (p StrayPolicy) String() string {
	if p == StrayLiteral {
		return "literal"
	}
	return "drop"
}

// ParseStrayPolicy accepts "drop" or "literal" (case-insensitive).
func ParseStrayPolicy(s string) (StrayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return StrayDrop, nil
	case "literal", "keep":
		return StrayLiteral, nil
	default:
		return StrayDrop, fmt.Errorf("未知的标记符策略：%s", s)
	}
}

// Options 配置 Engine。
type Options struct {
	Emoji  EmojiLocator // 为空时不识别 emoji
	Stray  StrayPolicy
	Logger *log.Logger // 为空时使用 log.Default()
}

// Engine 保存只读配置，可被多个 goroutine 共享；
// 测量器由每次调用传入，并发调用时应各自使用独立或并发安全的测量器。
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{opts: opts}
}

// Tokens 是 Tokenize 的结果。Fault 非空时 Segments 为空，文本视为缺失。
type Tokens struct {
	Segments []Segment
	Fault    error
}

// OK reports whether tokenization completed without a fault.
func (t Tokens) OK() bool { return t.Fault == nil }

// Block 是 Wrap 的结果。Fault 非空时 Lines 只包含一个空行。
type Block struct {
	Lines []Line
	Fault error
}

// OK reports whether wrapping completed without a fault.
func (b Block) OK() bool { return b.Fault == nil }

func (e *Engine) logf(format string, args ...any) {
	e.opts.Logger.Printf("richtext: "+format, args...)
}

// gauge 包装测量器并记录第一次出现的无效宽度，之后的测量全部短路。
type gauge struct {
	m    Measurer
	size float64
	err  error
}

func (g *gauge) width(text string, kind Kind) float64 {
	if g.err != nil {
		return 0
	}
	w := g.m.Measure(text, kind, g.size)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		g.err = fmt.Errorf("%w: 测量 %q（%s，%g）得到无效宽度 %g", ErrInternal, text, kind, g.size, w)
		return 0
	}
	return w
}

func validSize(size float64) bool {
	return size > 0 && !math.IsInf(size, 0)
}

// recoverFault turns a panic raised inside op into an ErrInternal fault.
func recoverFault(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
	}
}
