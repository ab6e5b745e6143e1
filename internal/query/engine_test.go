package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finquery/internal/core"
)

type fakeReader struct {
	txs map[string][]core.Transaction
	err error
}

func (f fakeReader) TransactionsFor(_ context.Context, owner string) ([]core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[owner], nil
}

type fakeAssistant struct {
	answer     string
	called     bool
	transcript string
}

func (f *fakeAssistant) Ask(_ context.Context, queryText, transcript string) string {
	f.called = true
	f.transcript = transcript
	return f.answer
}

func TestEngineResolvesLocalIntent(t *testing.T) {
	assistant := &fakeAssistant{answer: "should not be used"}
	engine := NewEngine(fakeReader{txs: map[string][]core.Transaction{"u1": sampleLedger()}}, assistant)

	got, err := engine.Resolve(context.Background(), "u1", "what's my total spending this month?")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "Your total spending across all transactions is $35.00."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if assistant.called {
		t.Fatalf("assistant must not be invoked when an intent matches")
	}
}

func TestEngineFallsBackWithTranscript(t *testing.T) {
	assistant := &fakeAssistant{answer: "try a budget"}
	engine := NewEngine(fakeReader{txs: map[string][]core.Transaction{"u1": sampleLedger()}}, assistant)

	got, err := engine.Resolve(context.Background(), "u1", "should I save more?")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "try a budget" {
		t.Fatalf("got %q, want assistant answer", got)
	}
	if !assistant.called {
		t.Fatalf("assistant not invoked")
	}
	if !strings.Contains(assistant.transcript, "- 2024-01-03: rent $20.00") {
		t.Fatalf("assistant transcript missing ledger line: %q", assistant.transcript)
	}
}

func TestEngineFallbackEmptyLedgerSentinel(t *testing.T) {
	assistant := &fakeAssistant{answer: "no data to go on"}
	engine := NewEngine(fakeReader{txs: map[string][]core.Transaction{}}, assistant)

	if _, err := engine.Resolve(context.Background(), "nobody", "advise me"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if assistant.transcript != NoTransactionsFound {
		t.Fatalf("got transcript %q, want sentinel", assistant.transcript)
	}
}

func TestEngineEmptyLedgerLocalIntents(t *testing.T) {
	engine := NewEngine(fakeReader{}, &fakeAssistant{})
	cases := []struct {
		query string
		want  string
	}{
		{"spending breakdown", NoSpendingFound},
		{"largest expense category", NoSpendingFound},
		{"total spending", "Your total spending across all transactions is $0.00."},
	}
	for _, tc := range cases {
		got, err := engine.Resolve(context.Background(), "ghost", tc.query)
		if err != nil {
			t.Fatalf("%q: %v", tc.query, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestEnginePropagatesLedgerFault(t *testing.T) {
	storeErr := errors.New("store unavailable")
	engine := NewEngine(fakeReader{err: storeErr}, &fakeAssistant{})

	if _, err := engine.Resolve(context.Background(), "u1", "total spending"); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestEngineCharts(t *testing.T) {
	engine := NewEngine(fakeReader{txs: map[string][]core.Transaction{"u1": sampleLedger()}}, &fakeAssistant{})

	cat, err := engine.CategoryChart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("category chart: %v", err)
	}
	if len(cat.Labels) != 2 || cat.Labels[0] != "rent" {
		t.Fatalf("unexpected category chart: %+v", cat)
	}

	tm, err := engine.TimeChart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("time chart: %v", err)
	}
	if len(tm.Labels) != 3 || tm.Labels[0] != "2024-01-01" {
		t.Fatalf("unexpected time chart: %+v", tm)
	}
}
