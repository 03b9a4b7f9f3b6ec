package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_AlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf, colorEnabled: true}

	table := NewTable(out, "SYMBOL", "STATUS")
	table.AddRow("AAPL", out.Green("FILLED"))
	table.AddRow("MSFT", out.Red("REJECTED"))
	table.Render()

	raw := buf.String()
	if !strings.Contains(raw, "\x1b[") {
		t.Fatalf("expected color codes in %q", raw)
	}

	lines := strings.Split(strings.TrimRight(stripANSI(raw), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	want := []string{
		"SYMBOL  STATUS",
		"────────────────",
		"AAPL    FILLED",
		"MSFT    REJECTED",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestOutput_NoColor(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf}
	out.Success("done %d", 3)
	if got := buf.String(); got != "done 3\n" {
		t.Errorf("output = %q", got)
	}
}
