// Package grammarast defines the in-memory grammar tree that drives
// generation. The real BNF front-end that turns grammar source into this
// tree is out of scope (spec's external collaborator); this package only
// has to model the tree shape precisely enough for the rest of the
// generator to consume it.
package grammarast

import "fmt"

// ExprKind tags the concrete variant of an Expr without reflection.
type ExprKind int

const (
	KindReference ExprKind = iota
	KindStringLiteral
	KindNumberLiteral
	KindSequence
	KindChoice
	KindOptional
	KindZeroOrMore
	KindOneOrMore
	KindAnd
	KindNot
	KindParenthesized
	KindExternal
)

func (k ExprKind) String() string {
	switch k {
	case KindReference:
		return "Reference"
	case KindStringLiteral:
		return "StringLiteral"
	case KindNumberLiteral:
		return "NumberLiteral"
	case KindSequence:
		return "Sequence"
	case KindChoice:
		return "Choice"
	case KindOptional:
		return "Optional"
	case KindZeroOrMore:
		return "ZeroOrMore"
	case KindOneOrMore:
		return "OneOrMore"
	case KindAnd:
		return "And"
	case KindNot:
		return "Not"
	case KindParenthesized:
		return "Parenthesized"
	case KindExternal:
		return "External"
	default:
		return fmt.Sprintf("ExprKind(%d)", int(k))
	}
}

// Expr is the sealed expression-tree interface. Every grammar expression
// node implements it; Kind reports which of the twelve variants it is, and
// Text carries the expression's original source text (used for the pin
// regex match).
type Expr interface {
	Kind() ExprKind
	Text() string
}

// exprBase factors the source-text field shared by every variant.
type exprBase struct {
	SrcText string
}

func (e exprBase) Text() string { return e.SrcText }

// Reference names either another rule or a token.
type Reference struct {
	exprBase
	Name string
}

func (Reference) Kind() ExprKind { return KindReference }

// NewReference builds a Reference node; text defaults to the name itself.
func NewReference(name string) *Reference {
	return &Reference{exprBase: exprBase{SrcText: name}, Name: name}
}

// StringLiteral is an inline quoted-token match.
type StringLiteral struct {
	exprBase
	Value string
}

func (StringLiteral) Kind() ExprKind { return KindStringLiteral }

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{exprBase: exprBase{SrcText: fmt.Sprintf("%q", value)}, Value: value}
}

// NumberLiteral is an inline numeric-token match.
type NumberLiteral struct {
	exprBase
	Value string
}

func (NumberLiteral) Kind() ExprKind { return KindNumberLiteral }

func NewNumberLiteral(value string) *NumberLiteral {
	return &NumberLiteral{exprBase: exprBase{SrcText: value}, Value: value}
}

// Sequence matches its children in order.
type Sequence struct {
	exprBase
	Children []Expr
}

func (Sequence) Kind() ExprKind { return KindSequence }

func NewSequence(text string, children ...Expr) *Sequence {
	return &Sequence{exprBase: exprBase{SrcText: text}, Children: children}
}

// Choice matches the first child that succeeds.
type Choice struct {
	exprBase
	Children []Expr
}

func (Choice) Kind() ExprKind { return KindChoice }

func NewChoice(text string, children ...Expr) *Choice {
	return &Choice{exprBase: exprBase{SrcText: text}, Children: children}
}

// Optional matches its child zero or one times.
type Optional struct {
	exprBase
	Child Expr
}

func (Optional) Kind() ExprKind { return KindOptional }

func NewOptional(text string, child Expr) *Optional {
	return &Optional{exprBase: exprBase{SrcText: text}, Child: child}
}

// ZeroOrMore matches its child zero or more times.
type ZeroOrMore struct {
	exprBase
	Child Expr
}

func (ZeroOrMore) Kind() ExprKind { return KindZeroOrMore }

func NewZeroOrMore(text string, child Expr) *ZeroOrMore {
	return &ZeroOrMore{exprBase: exprBase{SrcText: text}, Child: child}
}

// OneOrMore matches its child one or more times.
type OneOrMore struct {
	exprBase
	Child Expr
}

func (OneOrMore) Kind() ExprKind { return KindOneOrMore }

func NewOneOrMore(text string, child Expr) *OneOrMore {
	return &OneOrMore{exprBase: exprBase{SrcText: text}, Child: child}
}

// And is positive lookahead: the child must match, but nothing is consumed.
type And struct {
	exprBase
	Child Expr
}

func (And) Kind() ExprKind { return KindAnd }

func NewAnd(text string, child Expr) *And {
	return &And{exprBase: exprBase{SrcText: text}, Child: child}
}

// Not is negative lookahead: the child must fail, and nothing is consumed.
type Not struct {
	exprBase
	Child Expr
}

func (Not) Kind() ExprKind { return KindNot }

func NewNot(text string, child Expr) *Not {
	return &Not{exprBase: exprBase{SrcText: text}, Child: child}
}

// Parenthesized is pure grouping; it carries no semantics of its own.
type Parenthesized struct {
	exprBase
	Child Expr
}

func (Parenthesized) Kind() ExprKind { return KindParenthesized }

func NewParenthesized(text string, child Expr) *Parenthesized {
	return &Parenthesized{exprBase: exprBase{SrcText: text}, Child: child}
}

// External calls an external parser function. Args may themselves be
// expressions (e.g. a Reference to a meta-rule parameter, or a
// Parenthesized sub-grammar) that must be reified as parser-thunks at
// the call site.
type External struct {
	exprBase
	Head string
	Args []Expr
}

func (External) Kind() ExprKind { return KindExternal }

func NewExternal(text, head string, args ...Expr) *External {
	return &External{exprBase: exprBase{SrcText: text}, Head: head, Args: args}
}

// Attribute is one (possibly pattern-qualified) attribute declaration.
// Pattern is empty for an unqualified declaration.
type Attribute struct {
	Name    string
	Value   any
	Pattern string
}

// AttributeBag is an ordered set of attribute declarations at a single
// scope (root or a single rule). Order matters only for determinism of
// iteration; lookup is linear and first-match, matching spec's "earliest
// wins" contract.
type AttributeBag []Attribute

// Rule is one named production.
type Rule struct {
	Name  string
	Body  Expr
	Attrs AttributeBag
}

// Grammar is the ordered input: a sequence of rules plus root-scoped
// attributes. The first rule is the grammar root (spec's Invariant 2 is
// about this rule).
type Grammar struct {
	Rules     []*Rule
	RootAttrs AttributeBag
}

// RootRule returns the grammar root, i.e. the first declared rule.
func (g *Grammar) RootRule() *Rule {
	if len(g.Rules) == 0 {
		return nil
	}
	return g.Rules[0]
}

// RuleByName builds rulesByName once; callers needing repeated lookups
// should cache the result themselves (this mirrors the derived maps in
// spec section 3, computed once at generation start).
func (g *Grammar) RuleByName() map[string]*Rule {
	m := make(map[string]*Rule, len(g.Rules))
	for _, r := range g.Rules {
		m[r.Name] = r
	}
	return m
}
