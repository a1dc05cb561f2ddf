package psi

import "parsergen/internal/grammarast"

// grammarGraphHelper is a structural default for GraphHelper: it walks
// a rule's own expression tree and infers cardinality from the
// combinator nesting a reference appears under, rather than from any
// real semantic analysis. It exists so the pipeline has something to
// run end to end against; a production system would plug in the real
// RuleGraphHelper instead (spec section 1 names it an external
// collaborator for exactly this reason).
type grammarGraphHelper struct {
	ruleByName map[string]*grammarast.Rule
	cache      map[string][]Child
}

// FromGrammar builds a GraphHelper by walking every rule's body.
func FromGrammar(g *grammarast.Grammar) GraphHelper {
	return &grammarGraphHelper{
		ruleByName: g.RuleByName(),
		cache:      make(map[string][]Child),
	}
}

func (h *grammarGraphHelper) Children(ruleName string) []Child {
	if c, ok := h.cache[ruleName]; ok {
		return c
	}
	rule, ok := h.ruleByName[ruleName]
	if !ok {
		return nil
	}
	var out []Child
	seen := make(map[string]int) // name -> index into out, to merge repeated references
	collect(rule.Body, Required, h.ruleByName, &out, seen)
	h.cache[ruleName] = out
	return out
}

// collect walks node, classifying each Reference it finds with the
// cardinality implied by the combinators wrapping it: Optional/Choice
// alternatives degrade a Required child to Optional; ZeroOrMore/
// OneOrMore degrade to AnyNumber/AtLeastOne. A reference seen more than
// once (e.g. both sides of a Choice) is merged to the loosest
// cardinality observed.
func collect(node grammarast.Expr, card Cardinality, ruleByName map[string]*grammarast.Rule, out *[]Child, seen map[string]int) {
	switch n := node.(type) {
	case *grammarast.Reference:
		_, isRule := ruleByName[n.Name]
		ch := Child{Name: n.Name, IsToken: !isRule, Cardinality: card}
		if idx, ok := seen[n.Name]; ok {
			(*out)[idx].Cardinality = loosen((*out)[idx].Cardinality, card)
			return
		}
		seen[n.Name] = len(*out)
		*out = append(*out, ch)
	case *grammarast.Sequence:
		for _, c := range n.Children {
			collect(c, card, ruleByName, out, seen)
		}
	case *grammarast.Choice:
		for _, c := range n.Children {
			collect(c, loosen(card, Optional), ruleByName, out, seen)
		}
	case *grammarast.Optional:
		collect(n.Child, loosen(card, Optional), ruleByName, out, seen)
	case *grammarast.ZeroOrMore:
		collect(n.Child, loosen(card, AnyNumber), ruleByName, out, seen)
	case *grammarast.OneOrMore:
		collect(n.Child, loosen(card, AtLeastOne), ruleByName, out, seen)
	case *grammarast.And:
		// Lookahead consumes nothing; it never produces an observable child.
	case *grammarast.Not:
		// Same as And: no observable child.
	case *grammarast.Parenthesized:
		collect(n.Child, card, ruleByName, out, seen)
	case *grammarast.External:
		for _, a := range n.Args {
			collect(a, loosen(card, Optional), ruleByName, out, seen)
		}
	}
}

// loosen returns whichever of a, b admits more than the other: a
// repeated or optional child always wins over a plain required one.
func loosen(a, b Cardinality) Cardinality {
	rank := map[Cardinality]int{Required: 0, AtLeastOne: 1, Optional: 2, AnyNumber: 3}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
