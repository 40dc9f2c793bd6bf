package keyword

import "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"

// TextValue is a plain or regex search text.
type TextValue struct {
	Text            string
	Regex           bool
	CaseInsensitive bool
}

func (v TextValue) ToArray() map[string]any {
	if !v.Regex {
		return map[string]any{"text": v.Text}
	}
	return map[string]any{
		"pattern":         v.Text,
		"caseInsensitive": v.CaseInsensitive,
	}
}

// CategoryValue holds category names and numeric page ids.
type CategoryValue struct {
	Names   []string
	PageIDs []string
}

func (v CategoryValue) ToArray() map[string]any {
	return map[string]any{
		"names":   nonNil(v.Names),
		"pageIds": nonNil(v.PageIDs),
	}
}

// ListValue is a list of items stored under a single field label.
type ListValue struct {
	Label string
	Items []string
}

func (v ListValue) ToArray() map[string]any {
	return map[string]any{v.Label: nonNil(v.Items)}
}

// BoostValue maps template names to boost factors.
type BoostValue struct {
	Boosts map[string]float64
}

func (v BoostValue) ToArray() map[string]any {
	boosts := make(map[string]any, len(v.Boosts))
	for k, b := range v.Boosts {
		boosts[k] = b
	}
	return map[string]any{"boosts": boosts}
}

// NumericValue is a file numeric filter: either a single value compared
// with Sign (-1 less than, 0 equal, 1 greater than) or a Min..Max range.
type NumericValue struct {
	Field string
	Sign  int
	Value int
	Range bool
	Min   int
	Max   int
}

func (v NumericValue) ToArray() map[string]any {
	if v.Range {
		return map[string]any{"field": v.Field, "min": v.Min, "max": v.Max}
	}
	return map[string]any{"field": v.Field, "sign": v.Sign, "value": v.Value}
}

// DecayValue is a recency boost. HalfLife is in days.
type DecayValue struct {
	Decay    float64
	HalfLife float64
}

func (v DecayValue) ToArray() map[string]any {
	return map[string]any{"decay": v.Decay, "halfLife": v.HalfLife}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

var (
	_ ast.ParsedValue = TextValue{}
	_ ast.ParsedValue = CategoryValue{}
	_ ast.ParsedValue = ListValue{}
	_ ast.ParsedValue = BoostValue{}
	_ ast.ParsedValue = NumericValue{}
	_ ast.ParsedValue = DecayValue{}
)
