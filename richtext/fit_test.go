package richtext_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/inkcard/richtext"
)

func TestFitAcceptsStartSizeForShortText(t *testing.T) {
	e := quietEngine(richtext.Options{})
	got, err := e.Fit("hello", halfEm, richtext.FitParams{Start: 42, Min: 10, Step: 2, MaxWidth: 1000, MaxHeight: 500})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if !got.Fits || got.FontSize != 42 || got.Attempts != 1 {
		t.Fatalf("want fit at 42 on first attempt, got fits=%v size=%g attempts=%d", got.Fits, got.FontSize, got.Attempts)
	}
	if math.Abs(got.LineHeight-42*1.3) > 1e-9 {
		t.Fatalf("line height = %g, want %g", got.LineHeight, 42*1.3)
	}
}

func TestFitStepsDownUntilBoxFits(t *testing.T) {
	e := quietEngine(richtext.Options{})
	// 单行需要 4.5×字号 ≤ 100 且 1.3×字号 ≤ 30，第一个满足的偶数字号是 22。
	got, err := e.Fit("aaaa bbbb", halfEm, richtext.FitParams{Start: 42, Min: 10, Step: 2, MaxWidth: 100, MaxHeight: 30})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if !got.Fits || got.FontSize != 22 {
		t.Fatalf("want fit at 22, got fits=%v size=%g", got.Fits, got.FontSize)
	}
	if got.Attempts != 11 {
		t.Fatalf("attempts = %d, want 11", got.Attempts)
	}
	if len(got.Lines) != 1 || got.Height() > 30 {
		t.Fatalf("unexpected block: %d lines, height %g", len(got.Lines), got.Height())
	}
}

func TestFitFallsBackToSmallestAttempt(t *testing.T) {
	e := quietEngine(richtext.Options{})
	long := strings.Repeat("word ", 200)
	got, err := e.Fit(long, halfEm, richtext.FitParams{Start: 42, Min: 10, Step: 2, MaxWidth: 200, MaxHeight: 40})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if got.Fits {
		t.Fatalf("text should not fit")
	}
	if got.FontSize != 12 {
		t.Fatalf("best effort size = %g, want 12 (last size above the floor)", got.FontSize)
	}
	if len(got.Lines) == 0 {
		t.Fatalf("best effort result must still carry lines")
	}
}

func TestFitShrinksUntilEmojiFits(t *testing.T) {
	e := quietEngine(richtext.Options{Emoji: fixedLocator("😀")})
	got, err := e.Fit("😀", halfEm, richtext.FitParams{Start: 20, Min: 4, Step: 4, MaxWidth: 10})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	// 20×1.2 与 16×1.2 都超出 10，8×1.2=9.6 可以放下。
	if !got.Fits || got.FontSize != 8 {
		t.Fatalf("want fit at 8, got fits=%v size=%g", got.Fits, got.FontSize)
	}
}

func TestFitAlwaysAttemptsOnce(t *testing.T) {
	e := quietEngine(richtext.Options{})
	got, err := e.Fit(strings.Repeat("x", 100), halfEm, richtext.FitParams{Start: 8, Min: 10, Step: 2, MaxWidth: 50, MaxHeight: 10})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if got.Attempts != 1 || got.FontSize != 8 || got.Fits {
		t.Fatalf("unexpected result: attempts=%d size=%g fits=%v", got.Attempts, got.FontSize, got.Fits)
	}
}

func TestFitNormalizesStep(t *testing.T) {
	e := quietEngine(richtext.Options{})
	got, err := e.Fit("aaaa bbbb", halfEm, richtext.FitParams{Start: 24, Min: 10, Step: 0, MaxWidth: 100, MaxHeight: 30})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if got.FontSize != 22 || got.Attempts != 2 {
		t.Fatalf("step should default to %g: size=%g attempts=%d", richtext.DefaultFitStep, got.FontSize, got.Attempts)
	}
}

func TestFitReportsFaultsAndMissingMeasurer(t *testing.T) {
	e := quietEngine(richtext.Options{})
	if _, err := e.Fit("x", nil, richtext.FitParams{Start: 10, Min: 1}); !errors.Is(err, richtext.ErrNoMeasurer) {
		t.Fatalf("nil measurer: got %v, want ErrNoMeasurer", err)
	}

	boom := richtext.MeasureFunc(func(string, richtext.Kind, float64) float64 { panic("boom") })
	got, err := e.Fit("x", boom, richtext.FitParams{Start: 10, Min: 1})
	if err != nil {
		t.Fatalf("faults must not be returned as errors, got %v", err)
	}
	if !errors.Is(got.Fault, richtext.ErrInternal) || got.Fits || got.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
