package domain

import "fmt"

// Cost is an optional monetary amount in USD. The zero value is unknown,
// which is distinct from a known cost of zero.
type Cost struct {
	Amount float64 `json:"amount"`
	Known  bool    `json:"known"`
}

// KnownCost returns a cost with a computed amount
func KnownCost(amount float64) Cost {
	return Cost{Amount: amount, Known: true}
}

// UnknownCost returns a cost that could not be computed
func UnknownCost() Cost {
	return Cost{}
}

// Value returns the amount and whether it is known
func (c Cost) Value() (float64, bool) {
	return c.Amount, c.Known
}

// String formats the cost for display
func (c Cost) String() string {
	if !c.Known {
		return "unknown"
	}
	return fmt.Sprintf("$%.6f", c.Amount)
}

// TokenUsage is the token accounting reported by a backend
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
