package query

import (
	"testing"

	"finquery/internal/core"
)

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript(sampleLedger())
	want := "- 2024-01-01: food $10.00\n- 2024-01-02: food $5.00\n- 2024-01-03: rent $20.00"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatTranscriptEmpty(t *testing.T) {
	if got := FormatTranscript(nil); got != NoTransactionsFound {
		t.Fatalf("got %q, want %q", got, NoTransactionsFound)
	}
}

func TestFormatTranscriptKeepsLedgerOrder(t *testing.T) {
	// Insertion order is not chronological order; the transcript must not
	// reorder lines.
	txs := []core.Transaction{
		tx("u1", 100, "late", "2024-12-31"),
		tx("u1", 100, "early", "2024-01-01"),
	}
	got := FormatTranscript(txs)
	want := "- 2024-12-31: late $1.00\n- 2024-01-01: early $1.00"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
