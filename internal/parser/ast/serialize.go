package ast

func tagged(tag string, fields map[string]any) map[string]any {
	return map[string]any{tag: fields}
}

func (n *WordsQueryNode) ToArray() map[string]any {
	f := n.fields()
	f["words"] = n.Words
	return tagged("words", f)
}

func (n *PhraseQueryNode) ToArray() map[string]any {
	f := n.fields()
	f["phrase"] = n.Phrase
	if n.Slop >= 0 {
		f["slop"] = n.Slop
	}
	if n.Stem {
		f["stem"] = true
	}
	if n.Unbalanced {
		f["unbalanced"] = true
	}
	return tagged("phrase", f)
}

func (n *PhrasePrefixNode) ToArray() map[string]any {
	f := n.fields()
	f["phrase_prefix"] = n.Phrase
	return tagged("phrase_prefix", f)
}

func (n *WildcardNode) ToArray() map[string]any {
	f := n.fields()
	f["wildcardquery"] = n.Wildcard
	return tagged("wildcard", f)
}

func (n *FuzzyNode) ToArray() map[string]any {
	f := n.fields()
	f["word"] = n.Word
	f["fuzziness"] = n.Fuzziness
	return tagged("fuzzy", f)
}

func (n *PrefixNode) ToArray() map[string]any {
	f := n.fields()
	f["prefix"] = n.Prefix
	return tagged("prefix", f)
}

func (n *KeywordFeatureNode) ToArray() map[string]any {
	f := n.fields()
	f["key"] = n.Key
	f["value"] = n.Value
	f["quotedValue"] = n.QuotedValue
	f["delimiter"] = n.Delimiter
	f["suffix"] = n.Suffix
	f["negated"] = n.Negated
	if n.ParsedValue != nil {
		f["parsedValue"] = n.ParsedValue.ToArray()
	}
	return tagged("keyword", f)
}

func (n *NegatedNode) ToArray() map[string]any {
	f := n.fields()
	f["child"] = n.Child.ToArray()
	f["negation_type"] = n.NegationType
	return tagged("not", f)
}

func (n *NamespaceHeaderNode) ToArray() map[string]any {
	f := n.fields()
	f["namespace"] = n.Namespace
	f["namespaceId"] = n.NamespaceID
	f["child"] = n.Child.ToArray()
	return tagged("namespace", f)
}

func (n *ParsedBooleanNode) ToArray() map[string]any {
	f := n.fields()
	clauses := make([]any, 0, len(n.Clauses))
	for _, c := range n.Clauses {
		clauses = append(clauses, c.ToArray())
	}
	f["clauses"] = clauses
	return tagged("bool", f)
}

func (n *EmptyQueryNode) ToArray() map[string]any {
	return tagged("empty", n.fields())
}
