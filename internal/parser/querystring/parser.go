// Package querystring parses user-typed full-text search queries into an
// ast.ParsedQuery.
//
// Parsing runs in two passes over the cleaned query. The first pass reads
// clauses left to right, trying in order a boolean operator, a keyword, a
// namespace header, a phrase and a bare term. The second pass resolves
// operators into boolean roles:
//
//   - A AND B OR C   => MUST:A SHOULD:B SHOULD:C
//   - A OR B AND C   => SHOULD:A MUST:B MUST:C
//   - A OR NOT B     => SHOULD:A MUST_NOT:B
//   - NOT AND FOO    => MUST_NOT:AND MUST:FOO
//   - NOT !FOO       => MUST:FOO
//
// Each operator labels both of its neighbours; when two operators share an
// operand the one on its right wins.
package querystring

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
)

const (
	msgUnexpectedToken = "cirrussearch-parse-error-unexpected-token"
	msgUnexpectedEnd   = "cirrussearch-parse-error-unexpected-end"
	msgDoubleNegation  = "cirrussearch-parse-error-double-negation"

	allNamespacesName = "all"
	allNamespacesID   = -1
)

// Parser is immutable after New and safe for concurrent use.
type Parser struct {
	opts       Options
	recognizer *keyword.Recognizer
	namespaces map[string]int
	classifier ast.QueryClassifier
}

// New builds a parser recognizing the keywords in registry. classifier may
// be nil.
func New(registry *keyword.Registry, opts Options, classifier ast.QueryClassifier) (*Parser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	namespaces := make(map[string]int, len(opts.Namespaces))
	for name, id := range opts.Namespaces {
		namespaces[normalizeNamespace(name)] = id
	}
	opts.Namespaces = nil
	return &Parser{
		opts: opts,
		recognizer: keyword.NewRecognizer(registry, keyword.Options{
			EnableRegex:   opts.EnableRegex,
			MaxConditions: opts.MaxKeywordConditions,
		}),
		namespaces: namespaces,
		classifier: classifier,
	}, nil
}

// Parse parses query. The only error it returns is a *QueryTooLongError;
// every other anomaly becomes a warning on the result.
func (p *Parser) Parse(query string) (*ast.ParsedQuery, error) {
	length := utf8.RuneCountInString(query)
	if err := checkHardLimit(length, p.opts); err != nil {
		return nil, err
	}
	cleaned, cleanups := cleanup(query, p.opts)

	st := &parseState{parser: p, s: lexer.NewScanner([]rune(cleaned))}
	root := st.assemble(st.scan())

	if err := checkSoftLimit(length, st.keywords.Covered(), p.opts); err != nil {
		return nil, err
	}
	sort.SliceStable(st.warnings, func(i, j int) bool {
		return st.warnings[i].Start < st.warnings[j].Start
	})
	return ast.NewParsedQuery(root, cleaned, query, cleanups, st.warnings, p.classifier), nil
}

// item is either a parsed clause node or an operator read in the first pass.
type item struct {
	node ast.Node
	op   string
	tok  lexer.Token
}

// parseState holds everything mutable for a single Parse call.
type parseState struct {
	parser   *Parser
	s        *lexer.Scanner
	warnings []ast.ParseWarning
	keywords lexer.OffsetTracker
}

func (st *parseState) warn(w ...ast.ParseWarning) {
	st.warnings = append(st.warnings, w...)
}

func (st *parseState) scan() []item {
	var items []item
	for {
		st.s.Whitespace()
		if st.s.EOF() {
			return items
		}
		if tok, ok := st.s.Operator(); ok {
			items = append(items, item{op: canonicalOperator(tok.Text), tok: tok})
			continue
		}
		items = append(items, item{node: st.clause(len(items) == 0)})
	}
}

func canonicalOperator(op string) string {
	switch op {
	case "&&":
		return "AND"
	case "||":
		return "OR"
	default:
		return op
	}
}

// clause reads one clause at the scanner position.
func (st *parseState) clause(first bool) ast.Node {
	s := st.s
	start := s.Pos()
	src := s.Source()
	boundary := start == 0 || lexer.IsWhitespace(src[start-1])

	if boundary {
		if node := st.keyword(first); node != nil {
			return node
		}
	}
	if first {
		if node := st.namespaceHeader(); node != nil {
			return node
		}
	}
	if node, warnings, ok := parsePhrase(s); ok {
		st.warn(warnings...)
		return node
	}
	if node, warnings, ok := parseNonPhrase(s, st.parser.opts.AllowLeadingWildcard); ok {
		st.warn(warnings...)
		return node
	}
	// Unreachable for well-formed scanners; consume one rune so the loop
	// always makes progress.
	s.Seek(start + 1)
	return &ast.WordsQueryNode{
		Span:  ast.Span{StartOffset: start, EndOffset: start + 1},
		Words: s.Text(start, start+1),
	}
}

// keyword recognizes -kw:value and kw:value directly, and !kw:value as a
// negated keyword node.
func (st *parseState) keyword(first bool) ast.Node {
	s := st.s
	start := s.Pos()
	if s.Peek(0) == '!' {
		s.Seek(start + 1)
		m, ok := st.parser.recognizer.Match(s, false)
		if !ok || m.Node.Negated {
			s.Seek(start)
			return nil
		}
		st.acceptKeyword(start, m)
		return &ast.NegatedNode{
			Span:         ast.Span{StartOffset: start, EndOffset: m.Node.End()},
			Child:        m.Node,
			NegationType: "!",
		}
	}
	m, ok := st.parser.recognizer.Match(s, first)
	if !ok {
		return nil
	}
	st.acceptKeyword(start, m)
	return m.Node
}

// acceptKeyword exempts [start, end of keyword) from the soft limit, so a
// '!' prefix counts like a '-' prefix.
func (st *parseState) acceptKeyword(start int, m keyword.Match) {
	st.keywords.Append(start, m.Node.End())
	st.warn(m.Warnings...)
}

// namespaceHeader recognizes Name:term where Name is a configured
// namespace or "all".
func (st *parseState) namespaceHeader() ast.Node {
	s := st.s
	start := s.Pos()
	name, ok := s.Identifier()
	if !ok {
		return nil
	}
	id, known := st.parser.namespaceID(name.Text)
	if !known {
		s.Seek(start)
		return nil
	}
	s.Colon()
	if next := s.Peek(0); next == 0 || next == '"' || lexer.IsWhitespace(next) {
		s.Seek(start)
		return nil
	}
	child, warnings, ok := parseNonPhrase(s, st.parser.opts.AllowLeadingWildcard)
	if !ok {
		s.Seek(start)
		return nil
	}
	st.warn(warnings...)
	return &ast.NamespaceHeaderNode{
		Span:        ast.Span{StartOffset: start, EndOffset: child.End()},
		Namespace:   name.Text,
		NamespaceID: id,
		Child:       child,
	}
}

func (p *Parser) namespaceID(name string) (int, bool) {
	key := normalizeNamespace(name)
	if key == allNamespacesName {
		return allNamespacesID, true
	}
	id, ok := p.namespaces[key]
	return id, ok
}

func normalizeNamespace(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", " "))
}

// operand is a clause with the binary operators written on either side.
type operand struct {
	node    ast.Node
	leftOp  string
	rightOp string
}

func (st *parseState) assemble(items []item) ast.Node {
	var ops []operand
	pending := ""

	push := func(node ast.Node, mergeable bool) {
		if mergeable && pending == "" && len(ops) > 0 {
			last := &ops[len(ops)-1]
			if merged := st.mergeWords(last.node, node); merged != nil {
				last.node = merged
				return
			}
		}
		next := operand{node: node}
		if pending != "" {
			ops[len(ops)-1].rightOp = pending
			next.leftOp = pending
			pending = ""
		}
		ops = append(ops, next)
	}

	for i := 0; i < len(items); i++ {
		it := items[i]
		last := i == len(items)-1
		switch it.op {
		case "":
			push(it.node, true)
		case "AND", "OR":
			switch {
			case len(ops) == 0 || pending != "":
				st.warn(ast.NewWarning(msgUnexpectedToken, it.tok.Start, it.tok.Text))
				push(literal(it.tok), true)
			case last:
				st.warn(ast.NewWarning(msgUnexpectedEnd, st.s.Len(), it.tok.Text))
				push(literal(it.tok), true)
			default:
				pending = it.op
			}
		case "NOT":
			if last {
				st.warn(ast.NewWarning(msgUnexpectedEnd, st.s.Len(), it.tok.Text))
				push(literal(it.tok), true)
				continue
			}
			i++
			push(st.negate(it.tok, items[i]), false)
		}
	}

	if len(ops) == 0 {
		return &ast.EmptyQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: st.s.Len()}}
	}
	clauses := make([]ast.BooleanClause, len(ops))
	for i, op := range ops {
		clauses[i] = clauseFor(op)
	}
	if len(clauses) == 1 && clauses[0].Occur == ast.Must && !clauses[0].Explicit {
		return clauses[0].Node
	}
	return &ast.ParsedBooleanNode{
		Span:    ast.Span{StartOffset: ops[0].node.Start(), EndOffset: ops[len(ops)-1].node.End()},
		Clauses: clauses,
	}
}

// negate applies a NOT operator to the item that follows it.
func (st *parseState) negate(not lexer.Token, next item) ast.Node {
	child := next.node
	if next.op != "" {
		st.warn(ast.NewWarning(msgUnexpectedToken, next.tok.Start, next.tok.Text))
		child = literal(next.tok)
	}
	switch c := child.(type) {
	case *ast.NegatedNode:
		st.warn(ast.NewWarning(msgDoubleNegation, c.Start()))
		return c.Child
	case *ast.KeywordFeatureNode:
		if c.Negated {
			st.warn(ast.NewWarning(msgDoubleNegation, c.Start()))
			positive := *c
			positive.Negated = false
			return &positive
		}
	}
	return &ast.NegatedNode{
		Span:         ast.Span{StartOffset: not.Start, EndOffset: child.End()},
		Child:        child,
		NegationType: not.Text,
	}
}

// mergeWords collapses two adjacent plain word runs into one node spanning
// both, including the whitespace between them.
func (st *parseState) mergeWords(left, right ast.Node) ast.Node {
	l, ok := left.(*ast.WordsQueryNode)
	if !ok {
		return nil
	}
	r, ok := right.(*ast.WordsQueryNode)
	if !ok {
		return nil
	}
	return &ast.WordsQueryNode{
		Span:  ast.Span{StartOffset: l.Start(), EndOffset: r.End()},
		Words: lexer.Unescape(st.s.Text(l.Start(), r.End())),
	}
}

func literal(tok lexer.Token) ast.Node {
	return &ast.WordsQueryNode{
		Span:  ast.Span{StartOffset: tok.Start, EndOffset: tok.End},
		Words: tok.Text,
	}
}

func occurFor(op string) ast.Occur {
	if op == "OR" {
		return ast.Should
	}
	return ast.Must
}

func clauseFor(op operand) ast.BooleanClause {
	explicit := op.leftOp != "" || op.rightOp != ""
	if neg, ok := op.node.(*ast.NegatedNode); ok {
		return ast.BooleanClause{
			Occur:    ast.MustNot,
			Node:     neg.Child,
			Explicit: explicit || neg.NegationType == "NOT",
		}
	}
	occur := ast.Must
	switch {
	case op.rightOp != "":
		occur = occurFor(op.rightOp)
	case op.leftOp != "":
		occur = occurFor(op.leftOp)
	}
	return ast.BooleanClause{Occur: occur, Node: op.node, Explicit: explicit}
}
