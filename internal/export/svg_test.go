package export

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSegments(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}
	values := []float64{1, 2, math.NaN(), 4, math.Inf(1), 6}

	segs := Segments(times, values)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if len(segs[0]) != 2 || segs[0][1].Y != 2 {
		t.Errorf("first segment: %v", segs[0])
	}
	if len(segs[1]) != 1 || segs[1][0].X != 3 {
		t.Errorf("second segment: %v", segs[1])
	}
	if len(segs[2]) != 1 || segs[2][0].Y != 6 {
		t.Errorf("third segment: %v", segs[2])
	}

	if got := Segments([]float64{0, 1}, []float64{math.NaN(), math.NaN()}); len(got) != 0 {
		t.Errorf("all-NaN series should have no segments, got %v", got)
	}
}

func TestTraceToSVG(t *testing.T) {
	var buf bytes.Buffer
	times := []float64{0, 1, 2, 3}
	values := []float64{1, 2, math.NaN(), 4}
	opts := DefaultSVGOptions()
	opts.Caption = "power_mw"
	if err := TraceToSVG(&buf, times, values, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
		t.Error("not an svg document")
	}
}

func TestTraceToSVGErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := TraceToSVG(&buf, []float64{0, 1}, []float64{1}, DefaultSVGOptions()); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := TraceToSVG(&buf, []float64{0, 1}, []float64{1, math.Inf(1)}, DefaultSVGOptions()); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestTraceToSVGFlatSeries(t *testing.T) {
	var buf bytes.Buffer
	if err := TraceToSVG(&buf, []float64{0, 1, 2}, []float64{5, 5, 5}, SVGOptions{}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("empty output for a flat series")
	}
}
