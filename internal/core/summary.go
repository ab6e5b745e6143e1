package core

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Name   string
	Amount Money
}

// ChartData holds parallel label/value sequences for chart-oriented call
// sites. Values are raw dollars, not formatted strings.
type ChartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"data"`
}
