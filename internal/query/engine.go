// Package query implements the query resolution engine: intent
// classification over free-text ledger questions, deterministic local
// aggregation, and the hand-off to the assistant fallback when no intent
// matches.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"finquery/internal/core"
	"finquery/internal/ledger"
	applog "finquery/internal/log"
)

// Assistant answers queries no local intent matches. Implementations always
// return a displayable string; failures are values, not errors.
type Assistant interface {
	Ask(ctx context.Context, queryText, transcript string) string
}

// Engine resolves one query per call. It is stateless: concurrent calls for
// any mix of owners are safe as long as the underlying reader supports
// concurrent reads.
type Engine struct {
	reader    ledger.TransactionReader
	assistant Assistant
}

func NewEngine(reader ledger.TransactionReader, assistant Assistant) *Engine {
	return &Engine{reader: reader, assistant: assistant}
}

// Resolve classifies the query and either computes the matching aggregate
// over the owner's current ledger snapshot or defers to the assistant with a
// full transcript. The only errors returned are ledger-store faults; every
// assistant failure mode comes back as a displayable string.
func (e *Engine) Resolve(ctx context.Context, owner, queryText string) (string, error) {
	intent := ResolveIntent(queryText)

	txs, err := e.reader.TransactionsFor(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("read ledger for %q: %w", owner, err)
	}

	if intent != IntentNone {
		slog.DebugContext(ctx, "Query matched local intent", applog.FieldIntent, intent.String(), "transactions", len(txs))
		switch intent {
		case IntentBreakdown:
			return SpendingBreakdown(txs), nil
		case IntentLargest:
			return LargestExpenseCategory(txs), nil
		default:
			return TotalSpending(txs), nil
		}
	}

	slog.DebugContext(ctx, "No local intent matched, delegating to assistant", "transactions", len(txs))
	return e.assistant.Ask(ctx, queryText, FormatTranscript(txs)), nil
}

// CategoryChart returns the owner's per-category totals for chart call
// sites, computed fresh from the current ledger snapshot.
func (e *Engine) CategoryChart(ctx context.Context, owner string) (core.ChartData, error) {
	txs, err := e.reader.TransactionsFor(ctx, owner)
	if err != nil {
		return core.ChartData{}, fmt.Errorf("read ledger for %q: %w", owner, err)
	}
	return CategoryChartData(txs), nil
}

// TimeChart returns the owner's per-timestamp totals for chart call sites.
func (e *Engine) TimeChart(ctx context.Context, owner string) (core.ChartData, error) {
	txs, err := e.reader.TransactionsFor(ctx, owner)
	if err != nil {
		return core.ChartData{}, fmt.Errorf("read ledger for %q: %w", owner, err)
	}
	return TimeChartData(txs), nil
}
