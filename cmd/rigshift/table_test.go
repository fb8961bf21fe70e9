package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{textColumn("Joint"), numericColumn("Vertices")}, [][]string{{"Hip", "8"}, {"Spine"}})
	for _, want := range []string{"Joint", "Vertices", "Hip", "Spine"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if got := len(strings.Split(strings.TrimSpace(out), "\n")); got != 6 {
		t.Fatalf("expected 6 rendered lines, got %d:\n%s", got, out)
	}
}

func TestRenderTableRightAlignsNumericColumns(t *testing.T) {
	out := renderTable([]column{numericColumn("Count")}, [][]string{{"7"}, {"12345"}})
	if !strings.Contains(out, "     7 ") {
		t.Fatalf("expected right aligned number:\n%s", out)
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestFormatExtent(t *testing.T) {
	if got := formatExtent(0.5); got != "0.5000" {
		t.Fatalf("formatExtent(0.5) = %q", got)
	}
}
