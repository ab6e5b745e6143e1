package query

import (
	"fmt"
	"strings"

	"finquery/internal/core"
)

// NoTransactionsFound is the sentinel transcript for an owner with no
// recorded transactions.
const NoTransactionsFound = "No transactions found."

// FormatTranscript renders one line per transaction, in ledger order, for use
// as assistant context. No truncation is performed: arbitrarily long
// histories pass through as-is.
func FormatTranscript(txs []core.Transaction) string {
	if len(txs) == 0 {
		return NoTransactionsFound
	}
	lines := make([]string, len(txs))
	for i, tx := range txs {
		lines[i] = fmt.Sprintf("- %s: %s %s", tx.Timestamp, tx.Category, tx.Amount.FormatUSD())
	}
	return strings.Join(lines, "\n")
}
