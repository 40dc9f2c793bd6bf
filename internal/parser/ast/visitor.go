package ast

// Visitor has one method per node variant.
type Visitor interface {
	VisitWords(n *WordsQueryNode)
	VisitPhrase(n *PhraseQueryNode)
	VisitPhrasePrefix(n *PhrasePrefixNode)
	VisitWildcard(n *WildcardNode)
	VisitFuzzy(n *FuzzyNode)
	VisitPrefix(n *PrefixNode)
	VisitKeyword(n *KeywordFeatureNode)
	VisitNegated(n *NegatedNode)
	VisitNamespaceHeader(n *NamespaceHeaderNode)
	VisitBoolean(n *ParsedBooleanNode)
	VisitEmpty(n *EmptyQueryNode)
}

func (n *WordsQueryNode) Accept(v Visitor) { v.VisitWords(n) }
func (n *PhraseQueryNode) Accept(v Visitor) { v.VisitPhrase(n) }
func (n *PhrasePrefixNode) Accept(v Visitor) { v.VisitPhrasePrefix(n) }
func (n *WildcardNode) Accept(v Visitor) { v.VisitWildcard(n) }
func (n *FuzzyNode) Accept(v Visitor) { v.VisitFuzzy(n) }
func (n *PrefixNode) Accept(v Visitor) { v.VisitPrefix(n) }
func (n *KeywordFeatureNode) Accept(v Visitor) { v.VisitKeyword(n) }
func (n *NegatedNode) Accept(v Visitor) { v.VisitNegated(n) }
func (n *NamespaceHeaderNode) Accept(v Visitor) { v.VisitNamespaceHeader(n) }
func (n *ParsedBooleanNode) Accept(v Visitor) { v.VisitBoolean(n) }
func (n *EmptyQueryNode) Accept(v Visitor) { v.VisitEmpty(n) }

// Walk calls fn for n and, while fn returns true, for every descendant in
// depth-first order.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *NegatedNode:
		Walk(n.Child, fn)
	case *NamespaceHeaderNode:
		Walk(n.Child, fn)
	case *ParsedBooleanNode:
		for _, c := range n.Clauses {
			Walk(c.Node, fn)
		}
	}
}
