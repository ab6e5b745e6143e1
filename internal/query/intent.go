package query

import "strings"

// Intent is the analytical operation a free-text query maps to.
type Intent int

const (
	IntentNone Intent = iota
	IntentBreakdown
	IntentLargest
	IntentTotal
)

func (i Intent) String() string {
	switch i {
	case IntentBreakdown:
		return "breakdown"
	case IntentLargest:
		return "largest"
	case IntentTotal:
		return "total"
	default:
		return "none"
	}
}

// keywordBindings is an ordered table: the first phrase contained in the
// lower-cased query wins, regardless of where it appears. The declaration
// order is a deterministic tie-break and must not be reordered.
var keywordBindings = []struct {
	phrase string
	intent Intent
}{
	{"spending breakdown", IntentBreakdown},
	{"largest expense category", IntentLargest},
	{"total spending", IntentTotal},
	{"total balance", IntentTotal},
}

// ResolveIntent classifies a query by substring match against the keyword
// table. Matching is not tokenized: "my total spending this year" matches
// "total spending". Returns IntentNone when no phrase is found, signaling
// the caller to fall back to the assistant.
func ResolveIntent(queryText string) Intent {
	q := strings.ToLower(queryText)
	for _, b := range keywordBindings {
		if strings.Contains(q, b.phrase) {
			return b.intent
		}
	}
	return IntentNone
}
