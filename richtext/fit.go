package richtext

// FitParams 描述自动适配字号时的搜索区间与目标框。
// MaxWidth、MaxHeight 非正时对应方向不受限。
type FitParams struct {
	Start     float64
	Min       float64
	Step      float64
	MaxWidth  float64
	MaxHeight float64
}

// Fitted 是 Fit 的结果。Fits 为 false 时 Lines 是最小字号下的尽力结果，可能溢出。
type Fitted struct {
	Lines      []Line
	FontSize   float64
	LineHeight float64
	Fits       bool
	Attempts   int
	Fault      error
}

// Height returns the total block height at the fitted line height.
func (f Fitted) Height() float64 {
	return float64(len(f.Lines)) * f.LineHeight
}

// Fit 从 Start 开始按 Step 递减字号，每次都重新切分与折行，
// 返回第一个同时满足高度与宽度约束的结果。字号只在大于 Min 时尝试，
// 但至少尝试一次。
func (e *Engine) Fit(text string, m Measurer, p FitParams) (Fitted, error) {
	if !usable(m) {
		return Fitted{}, ErrNoMeasurer
	}
	step := p.Step
	if !(step > 0) {
		step = DefaultFitStep
	}

	var last Fitted
	for size, n := p.Start, 1; ; size, n = size-step, n+1 {
		attempt, err := e.fitAt(text, m, size, p)
		if err != nil {
			return Fitted{}, err
		}
		attempt.Attempts = n
		last = attempt
		if last.Fits || last.Fault != nil {
			return last, nil
		}
		next := size - step
		if next <= p.Min || next >= size {
			return last, nil
		}
	}
}

func (e *Engine) fitAt(text string, m Measurer, size float64, p FitParams) (Fitted, error) {
	toks, err := e.Tokenize(text, m, size)
	if err != nil {
		return Fitted{}, err
	}
	lineHeight := size * LineHeightFactor
	if toks.Fault != nil {
		return Fitted{FontSize: size, LineHeight: lineHeight, Fault: toks.Fault}, nil
	}
	block, err := e.Wrap(toks.Segments, p.MaxWidth, m, size)
	if err != nil {
		return Fitted{}, err
	}
	f := Fitted{
		Lines:      block.Lines,
		FontSize:   size,
		LineHeight: lineHeight,
		Fault:      block.Fault,
	}
	f.Fits = f.Fault == nil && fitsBox(f, p)
	return f, nil
}

func fitsBox(f Fitted, p FitParams) bool {
	if p.MaxHeight > 0 && f.Height() > p.MaxHeight {
		return false
	}
	if p.MaxWidth > 0 {
		for _, line := range f.Lines {
			if line.Width() > p.MaxWidth {
				return false
			}
		}
	}
	return true
}
