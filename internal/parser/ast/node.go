// Package ast defines the typed syntax tree produced by the query-string
// parser. The node set is closed: every variant lives in this package and
// implements the unexported isNode marker.
package ast

// Node is a parsed query node. Offsets are code point indices into the
// cleaned query, start inclusive and end exclusive.
type Node interface {
	Start() int
	End() int
	// ToArray returns the node in its serialized form, a single-key map
	// from the node type tag to the node fields.
	ToArray() map[string]any
	Accept(v Visitor)
	isNode()
}

// Span is the [start,end) offset pair carried by every node.
type Span struct {
	StartOffset int
	EndOffset   int
}

func (s Span) Start() int { return s.StartOffset }
func (s Span) End() int { return s.EndOffset }

// Len returns the number of code points covered by the span.
func (s Span) Len() int { return s.EndOffset - s.StartOffset }

func (s Span) fields() map[string]any {
	return map[string]any{
		"startOffset": s.StartOffset,
		"endOffset":   s.EndOffset,
	}
}

// ParsedValue is the keyword-specific interpretation of a keyword value.
type ParsedValue interface {
	ToArray() map[string]any
}

// WordsQueryNode is a run of plain terms.
type WordsQueryNode struct {
	Span
	Words string
}

// PhraseQueryNode is a quoted phrase. Slop is -1 when not set.
type PhraseQueryNode struct {
	Span
	Phrase     string
	Slop       int
	Stem       bool
	Unbalanced bool
}

// PhrasePrefixNode is a phrase matched as a prefix ("foo bar*").
type PhrasePrefixNode struct {
	Span
	Phrase string
}

// WildcardNode is a term containing * or ? wildcards.
type WildcardNode struct {
	Span
	Wildcard string
}

// FuzzyNode is a term matched within an edit distance.
type FuzzyNode struct {
	Span
	Word      string
	Fuzziness int
}

// PrefixNode is a word followed by one or more trailing stars (foo*).
type PrefixNode struct {
	Span
	Prefix string
}

// KeywordFeatureNode is a recognized keyword:value operator. The span
// includes a leading '-' when Negated is set. Key is the name as written;
// Feature is the canonical name it resolved to, which differs for aliases.
type KeywordFeatureNode struct {
	Span
	Key         string
	Feature     string
	Value       string
	QuotedValue string
	Delimiter   string
	Suffix      string
	Negated     bool
	ParsedValue ParsedValue
}

// FeatureName returns Feature, falling back to Key.
func (n *KeywordFeatureNode) FeatureName() string {
	if n.Feature != "" {
		return n.Feature
	}
	return n.Key
}

// Quoted reports whether the value was written between double quotes.
func (n *KeywordFeatureNode) Quoted() bool { return n.Delimiter == `"` }

// NegatedNode wraps a node under logical NOT. NegationType is the operator
// text that introduced it: "-", "!" or "NOT".
type NegatedNode struct {
	Span
	Child        Node
	NegationType string
}

// NamespaceHeaderNode restricts Child to a namespace. NamespaceID is -1 for
// the all-namespaces header.
type NamespaceHeaderNode struct {
	Span
	Namespace   string
	NamespaceID int
	Child       Node
}

// ParsedBooleanNode is an ordered list of boolean clauses.
type ParsedBooleanNode struct {
	Span
	Clauses []BooleanClause
}

// EmptyQueryNode is the root of a blank query.
type EmptyQueryNode struct {
	Span
}

func (*WordsQueryNode) isNode() {}
func (*PhraseQueryNode) isNode() {}
func (*PhrasePrefixNode) isNode() {}
func (*WildcardNode) isNode() {}
func (*FuzzyNode) isNode() {}
func (*PrefixNode) isNode() {}
func (*KeywordFeatureNode) isNode() {}
func (*NegatedNode) isNode() {}
func (*NamespaceHeaderNode) isNode() {}
func (*ParsedBooleanNode) isNode() {}
func (*EmptyQueryNode) isNode() {}

// Occur is the boolean role of a clause relative to its siblings.
type Occur string

const (
	Must    Occur = "MUST"
	MustNot Occur = "MUST_NOT"
	Should  Occur = "SHOULD"
)

// BooleanClause pairs a node with its role. Explicit is set when the role
// came from an operator written by the user.
type BooleanClause struct {
	Occur    Occur
	Node     Node
	Explicit bool
}

// ToArray serializes the clause.
func (c BooleanClause) ToArray() map[string]any {
	return map[string]any{
		"occur":    string(c.Occur),
		"explicit": c.Explicit,
		"node":     c.Node.ToArray(),
	}
}
