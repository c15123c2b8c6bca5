// Package pricing computes the monetary cost of a completion from token
// usage and a per-model price table.
package pricing

import (
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

// Price is the USD cost per input and output token of one model
type Price struct {
	InputPerToken  float64 `json:"input_per_token" yaml:"input_per_token" validate:"gte=0"`
	OutputPerToken float64 `json:"output_per_token" yaml:"output_per_token" validate:"gte=0"`
}

// Table maps model keys to prices. A missing entry is not an error.
type Table map[string]Price

// DefaultTable returns the built-in prices
func DefaultTable() Table {
	return Table{
		"gemini-2.5-flash-preview":          {InputPerToken: 0.15e-6, OutputPerToken: 0.60e-6},
		"gemini-2.5-flash-preview:thinking": {InputPerToken: 0.15e-6, OutputPerToken: 0.60e-6},
	}
}

// Merge returns a new table with overrides applied on top of t
func (t Table) Merge(overrides Table) Table {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Candidates returns the lookup keys for a model id, most specific first:
// the id itself, the id without its provider path, and that name without
// its ":variant" suffix.
func Candidates(modelID string) []string {
	keys := []string{modelID}
	name := modelID
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name != modelID {
		keys = append(keys, name)
	}
	if i := strings.Index(name, ":"); i >= 0 {
		keys = append(keys, name[:i])
	}
	return keys
}

// Resolve finds the price entry for a model id, preferring the most
// specific key present in the table.
func (t Table) Resolve(modelID string) (Price, string, bool) {
	if modelID == "" {
		return Price{}, "", false
	}
	for _, key := range Candidates(modelID) {
		if p, ok := t[key]; ok {
			return p, key, true
		}
	}
	return Price{}, "", false
}

// Compute returns the cost of a completion, or an unknown cost when the
// model is not priced.
func (t Table) Compute(modelID string, usage domain.TokenUsage) domain.Cost {
	p, _, ok := t.Resolve(modelID)
	if !ok {
		return domain.UnknownCost()
	}
	amount := float64(usage.InputTokens)*p.InputPerToken + float64(usage.OutputTokens)*p.OutputPerToken
	return domain.KnownCost(amount)
}
