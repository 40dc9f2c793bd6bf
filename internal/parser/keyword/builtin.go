package keyword

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
)

const (
	DefaultMaxConditions = 100
	maxTemplates         = 256

	preferRecentDefaultDecay    = 0.6
	preferRecentDefaultHalfLife = 160.0
)

// Builtin returns the standard keyword catalogue.
func Builtin() *Registry {
	r, err := NewRegistry(builtinDefinitions()...)
	if err != nil {
		panic("keyword: invalid builtin catalogue: " + err.Error())
	}
	return r
}

func builtinDefinitions() []Definition {
	defs := []Definition{
		{Name: "intitle", Regex: true, Parse: parseText},
		{Name: "insource", Regex: true, Parse: parseText},
		{Name: "incategory", Parse: parseCategories},
		{Name: "deepcat", Aliases: []string{"deepcategory"}, Parse: listParser("categories", "|", false)},
		{Name: "hastemplate", Parse: parseTemplates},
		{Name: "boost-templates", Parse: parseBoostTemplates},
		{Name: "linksto", Parse: parseRaw},
		{Name: "subpageof", Parse: parseRaw},
		{Name: "contentmodel", Parse: parseRaw},
		{Name: "filemime", Parse: parseRaw},
		{Name: "inlanguage", Parse: listParser("languages", ",", false)},
		{Name: "articletopic", Parse: listParser("topics", "|", true)},
		{Name: "hasrecommendation", Parse: listParser("flags", "|", false)},
		{Name: "filetype", Parse: listParser("types", "|", true)},
		{Name: "pageid", Parse: parsePageIDs},
		{Name: "prefer-recent", AllowEmptyValue: true, Parse: parsePreferRecent},
		{Name: "morelikethis", Parse: listParser("titles", "|", false)},
		{Name: "morelike", Greedy: true, Parse: listParser("titles", "|", false)},
		{Name: "prefix", Greedy: true, Parse: parseRaw},
		{Name: "local", QueryHeader: true, Parse: parseRaw},
	}
	for key, field := range fileNumericFields {
		defs = append(defs, Definition{Name: key, Parse: numericParser(field)})
	}
	return defs
}

var fileNumericFields = map[string]string{
	"filesize":   "file_size",
	"filebits":   "file_bits",
	"fileh":      "file_height",
	"fileheight": "file_height",
	"filew":      "file_width",
	"filewidth":  "file_width",
	"fileres":    "file_resolution",
}

func parseRaw(Value) (ast.ParsedValue, []ast.ParseWarning) {
	return nil, nil
}

func parseText(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	return TextValue{Text: v.Text, Regex: v.Regex, CaseInsensitive: v.Suffix == "i"}, nil
}

func tooMany(v Value, limit int) ast.ParseWarning {
	return ast.NewWarning("cirrussearch-feature-too-many-conditions", v.Start, v.Key, limit)
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCategories(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	limit := v.MaxConditions
	if limit <= 0 {
		limit = DefaultMaxConditions
	}
	var warnings []ast.ParseWarning
	parts := splitNonEmpty(v.Text, "|")
	if len(parts) > limit {
		warnings = append(warnings, tooMany(v, limit))
		parts = parts[:limit]
	}
	var out CategoryValue
	for _, p := range parts {
		if id, ok := strings.CutPrefix(p, "id:"); ok && isDigits(id) {
			out.PageIDs = append(out.PageIDs, id)
			continue
		}
		out.Names = append(out.Names, p)
	}
	return out, warnings
}

func parseTemplates(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	var warnings []ast.ParseWarning
	parts := splitNonEmpty(v.Text, "|")
	if len(parts) > maxTemplates {
		warnings = append(warnings, tooMany(v, maxTemplates))
		parts = parts[:maxTemplates]
	}
	templates := make([]string, 0, len(parts))
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, ":"):
			templates = append(templates, p[1:])
		case strings.HasPrefix(strings.ToLower(p), "template:"):
			templates = append(templates, p)
		default:
			templates = append(templates, "Template:"+p)
		}
	}
	return ListValue{Label: "templates", Items: templates}, warnings
}

func parseBoostTemplates(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	out := BoostValue{Boosts: make(map[string]float64)}
	var warnings []ast.ParseWarning
	for _, field := range strings.Fields(v.Text) {
		name, pct, ok := strings.Cut(field, "|")
		pct, hasPct := strings.CutSuffix(pct, "%")
		boost, err := strconv.ParseFloat(pct, 64)
		if !ok || !hasPct || name == "" || err != nil {
			warnings = append(warnings, ast.NewWarning("cirrussearch-boost-templates-invalid", v.Start, field))
			continue
		}
		out.Boosts[name] = boost / 100
	}
	return out, warnings
}

func listParser(label, sep string, lower bool) ValueParser {
	return func(v Value) (ast.ParsedValue, []ast.ParseWarning) {
		items := splitNonEmpty(v.Text, sep)
		if lower {
			for i := range items {
				items[i] = strings.ToLower(items[i])
			}
		}
		return ListValue{Label: label, Items: items}, nil
	}
}

func parsePageIDs(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	var warnings []ast.ParseWarning
	var ids []string
	for _, p := range splitNonEmpty(v.Text, "|") {
		if !isDigits(p) {
			warnings = append(warnings, ast.NewWarning("cirrussearch-feature-pageid-invalid-id", v.Start, p))
			continue
		}
		ids = append(ids, p)
	}
	return ListValue{Label: "pageIds", Items: ids}, warnings
}

var preferRecentPattern = regexp.MustCompile(`^(1|0?(?:\.\d+)?)?(?:,(\d*\.?\d+))?$`)

func parsePreferRecent(v Value) (ast.ParsedValue, []ast.ParseWarning) {
	out := DecayValue{Decay: preferRecentDefaultDecay, HalfLife: preferRecentDefaultHalfLife}
	m := preferRecentPattern.FindStringSubmatch(v.Text)
	if m == nil {
		return out, nil
	}
	if m[1] != "" {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Decay = d
		}
	}
	if m[2] != "" {
		if h, err := strconv.ParseFloat(m[2], 64); err == nil {
			out.HalfLife = h
		}
	}
	return out, nil
}

func numericParser(field string) ValueParser {
	return func(v Value) (ast.ParsedValue, []ast.ParseWarning) {
		text := v.Text
		sign := 0
		switch {
		case strings.HasPrefix(text, ">"):
			sign, text = 1, text[1:]
		case strings.HasPrefix(text, "<"):
			sign, text = -1, text[1:]
		}
		if lo, hi, isRange := strings.Cut(text, ","); isRange {
			if sign != 0 {
				return nil, []ast.ParseWarning{ast.NewWarning(
					"cirrussearch-file-numeric-feature-multi-argument-w-sign", v.Start, v.Key, v.Text)}
			}
			from, errLo := strconv.Atoi(lo)
			to, errHi := strconv.Atoi(hi)
			if errLo != nil || errHi != nil {
				return nil, []ast.ParseWarning{notANumber(v)}
			}
			return NumericValue{Field: field, Range: true, Min: from, Max: to}, nil
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, []ast.ParseWarning{notANumber(v)}
		}
		return NumericValue{Field: field, Sign: sign, Value: n}, nil
	}
}

func notANumber(v Value) ast.ParseWarning {
	return ast.NewWarning("cirrussearch-file-numeric-feature-not-a-number", v.Start, v.Key, v.Text)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
