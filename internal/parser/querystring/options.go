package querystring

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

const (
	// HardQueryLengthLimit is the compiled ceiling on raw query length in
	// code points. Configuration may lower it but never raise it.
	HardQueryLengthLimit  = 2048
	DefaultMaxQueryLength = 300
	DefaultFuzziness      = 2
)

// QuestionMarkStripLevel controls removal of '?' from queries written as
// natural-language questions.
type QuestionMarkStripLevel string

const (
	StripNone            QuestionMarkStripLevel = "none"
	StripFinal           QuestionMarkStripLevel = "final"
	StripBreak           QuestionMarkStripLevel = "break"
	StripAll             QuestionMarkStripLevel = "all"
	StripLanguageDefault QuestionMarkStripLevel = "languageDefault"
)

// Options is the grammar configuration of a Parser.
type Options struct {
	// MaxQueryLength is the soft limit, extended by keyword spans. Zero
	// disables it.
	MaxQueryLength int
	// HardQueryLengthLimit lowers the compiled hard limit when positive.
	HardQueryLengthLimit int
	AllowLeadingWildcard bool
	StripQuestionMarks   QuestionMarkStripLevel
	LanguageCode         string
	EnableRegex          bool
	MaxKeywordConditions int
	// Namespaces maps namespace names to ids for Name:term headers.
	Namespaces map[string]int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxQueryLength:       DefaultMaxQueryLength,
		HardQueryLengthLimit: HardQueryLengthLimit,
		StripQuestionMarks:   StripLanguageDefault,
		LanguageCode:         "en",
	}
}

// Validate reports configuration values the parser cannot honour.
func (o Options) Validate() error {
	switch o.StripQuestionMarks {
	case StripNone, StripFinal, StripBreak, StripAll, StripLanguageDefault, "":
	default:
		return fmt.Errorf("%w: unknown question mark strip level %q", apperrors.ErrInvalidConfig, o.StripQuestionMarks)
	}
	if o.MaxQueryLength < 0 {
		return fmt.Errorf("%w: maxQueryLength must not be negative", apperrors.ErrInvalidConfig)
	}
	if o.HardQueryLengthLimit < 0 {
		return fmt.Errorf("%w: hardQueryLengthLimit must not be negative", apperrors.ErrInvalidConfig)
	}
	if o.MaxKeywordConditions < 0 {
		return fmt.Errorf("%w: maxKeywordConditions must not be negative", apperrors.ErrInvalidConfig)
	}
	return nil
}

func (o Options) hardLimit() int {
	if o.HardQueryLengthLimit > 0 && o.HardQueryLengthLimit < HardQueryLengthLimit {
		return o.HardQueryLengthLimit
	}
	return HardQueryLengthLimit
}

func (o Options) stripLevel() QuestionMarkStripLevel {
	switch o.StripQuestionMarks {
	case "", StripLanguageDefault:
		return StripFinal
	default:
		return o.StripQuestionMarks
	}
}
