package query

import (
	"fmt"
	"sort"
	"strings"

	"finquery/internal/core"
)

// NoSpendingFound is the normal (non-error) result of an aggregation over an
// empty ledger.
const NoSpendingFound = "No spending transactions found."

// categoryTotals groups transactions by category and sums amounts per
// category, preserving first-seen category order.
func categoryTotals(txs []core.Transaction) []core.CategoryTotal {
	sums := make(map[string]int64, len(txs))
	order := make([]string, 0, len(txs))
	for _, tx := range txs {
		if _, seen := sums[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		sums[tx.Category] += tx.Amount.Cents
	}
	out := make([]core.CategoryTotal, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategoryTotal{Name: name, Amount: core.Money{Cents: sums[name]}})
	}
	return out
}

// SpendingBreakdown renders per-category totals in encounter order.
func SpendingBreakdown(txs []core.Transaction) string {
	totals := categoryTotals(txs)
	if len(totals) == 0 {
		return NoSpendingFound
	}
	var b strings.Builder
	b.WriteString("Spending Breakdown:")
	for _, ct := range totals {
		b.WriteString(fmt.Sprintf("\n- %s: %s", ct.Name, ct.Amount.FormatUSD()))
	}
	return b.String()
}

// LargestExpenseCategory selects the category with the maximum total. Ties
// resolve to the category encountered first in the grouping order.
func LargestExpenseCategory(txs []core.Transaction) string {
	totals := categoryTotals(txs)
	if len(totals) == 0 {
		return NoSpendingFound
	}
	best := totals[0]
	for _, ct := range totals[1:] {
		if ct.Amount.Cents > best.Amount.Cents {
			best = ct
		}
	}
	return fmt.Sprintf("Your largest expense category is %s at %s.", best.Name, best.Amount.FormatUSD())
}

// TotalSpending sums all amounts for the owner. Negative amounts net out;
// an empty ledger yields a $0.00 total, not an error.
func TotalSpending(txs []core.Transaction) string {
	var total int64
	for _, tx := range txs {
		total += tx.Amount.Cents
	}
	return fmt.Sprintf("Your total spending across all transactions is %s.", core.Money{Cents: total}.FormatUSD())
}

// CategoryChartData returns per-category totals as parallel label/value
// sequences, sorted descending by total. The text path above preserves
// encounter order instead; the divergence is intentional.
func CategoryChartData(txs []core.Transaction) core.ChartData {
	totals := categoryTotals(txs)
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.Cents > totals[j].Amount.Cents
	})
	data := core.ChartData{Labels: []string{}, Values: []float64{}}
	for _, ct := range totals {
		data.Labels = append(data.Labels, ct.Name)
		data.Values = append(data.Values, ct.Amount.Dollars())
	}
	return data
}

// TimeChartData groups amounts by timestamp string and returns them sorted
// ascending by timestamp. Timestamps are free-form, so the sort is lexical;
// ISO-8601 inputs order chronologically.
func TimeChartData(txs []core.Transaction) core.ChartData {
	sums := make(map[string]int64, len(txs))
	keys := make([]string, 0, len(txs))
	for _, tx := range txs {
		if _, seen := sums[tx.Timestamp]; !seen {
			keys = append(keys, tx.Timestamp)
		}
		sums[tx.Timestamp] += tx.Amount.Cents
	}
	sort.Strings(keys)
	data := core.ChartData{Labels: []string{}, Values: []float64{}}
	for _, k := range keys {
		data.Labels = append(data.Labels, k)
		data.Values = append(data.Values, core.Money{Cents: sums[k]}.Dollars())
	}
	return data
}
