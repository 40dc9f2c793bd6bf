package ast

// CrossSearchStrategy tells whether a query may be fanned out to federated
// sources or must stay on the source it was issued against.
type CrossSearchStrategy int

const (
	AllSources CrossSearchStrategy = iota
	HostSourceOnly
)

func (s CrossSearchStrategy) String() string {
	switch s {
	case AllSources:
		return "all_sources"
	case HostSourceOnly:
		return "host_source_only"
	default:
		return "unknown"
	}
}

func (s CrossSearchStrategy) CrossProjectSearchSupported() bool {
	return s == AllSources
}

func (s CrossSearchStrategy) CrossLanguageSearchSupported() bool {
	return s == AllSources
}

func (s CrossSearchStrategy) ExtraIndicesSearchSupported() bool {
	return s == AllSources
}

// StrategyFor classifies a tree by the number of distinct keyword names it
// uses. Negation and repeated use of one keyword do not count.
func StrategyFor(root Node) CrossSearchStrategy {
	v := &keywordCounter{seen: make(map[string]struct{})}
	Walk(root, func(n Node) bool {
		n.Accept(v)
		return len(v.seen) < 2
	})
	if len(v.seen) >= 2 {
		return HostSourceOnly
	}
	return AllSources
}

type keywordCounter struct {
	seen map[string]struct{}
}

func (k *keywordCounter) VisitKeyword(n *KeywordFeatureNode) { k.seen[n.FeatureName()] = struct{}{} }

func (*keywordCounter) VisitWords(*WordsQueryNode) {}
func (*keywordCounter) VisitPhrase(*PhraseQueryNode) {}
func (*keywordCounter) VisitPhrasePrefix(*PhrasePrefixNode) {}
func (*keywordCounter) VisitWildcard(*WildcardNode) {}
func (*keywordCounter) VisitFuzzy(*FuzzyNode) {}
func (*keywordCounter) VisitPrefix(*PrefixNode) {}
func (*keywordCounter) VisitNegated(*NegatedNode) {}
func (*keywordCounter) VisitNamespaceHeader(*NamespaceHeaderNode) {}
func (*keywordCounter) VisitBoolean(*ParsedBooleanNode) {}
func (*keywordCounter) VisitEmpty(*EmptyQueryNode) {}
