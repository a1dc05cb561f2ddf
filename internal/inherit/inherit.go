// Package inherit builds and transitively closes the rule-extends
// relation (spec section 4.3) and records which rules participate in
// it, ahead of any code emission.
package inherit

import (
	"parsergen/internal/attrs"
	"parsergen/internal/grammarast"
	"parsergen/internal/names"
)

// Analysis is the set of maps the expression compiler and element-type
// emitter read during emission. It is built once and is read-only
// thereafter (spec section 5's "mutated only during initialization").
type Analysis struct {
	// ElementTypeOf maps a rule name to its emitted element-type
	// constant name.
	ElementTypeOf map[string]string

	// ExtendsMap is the transitive closure of the direct super->sub
	// relation, keyed and valued by element-type constant names, with
	// every public key reflexively including itself. Order within each
	// descendant slice is insertion order (first-seen).
	ExtendsMap map[string][]string

	// RulesWithInheritance is the set of rule names that are either a
	// super or a sub in any extends edge.
	RulesWithInheritance map[string]bool
}

// TypeExtends reports whether descendant is in parent's (transitively
// closed) descendant set. It is one-directional; the type_extends_
// predicate that internal/dispatch emits from ExtendsMap is true
// whenever a single set contains both arguments, in either order.
func (a *Analysis) TypeExtends(parent, descendant string) bool {
	for _, d := range a.ExtendsMap[parent] {
		if d == descendant {
			return true
		}
	}
	return false
}

// Analyze computes the Analysis for a grammar given an attribute
// resolver already bound to it.
func Analyze(g *grammarast.Grammar, res *attrs.Resolver) *Analysis {
	elementTypeOf := make(map[string]string, len(g.Rules))
	isPublic := make(map[string]bool, len(g.Rules))
	rootPrefix := attrs.String(res, "", "elementTypePrefix", "")

	for _, r := range g.Rules {
		private := attrs.Bool(res, r.Name, "private", false)
		prefix := attrs.String(res, r.Name, "elementTypePrefix", rootPrefix)
		explicit := attrs.String(res, r.Name, "elementType", "")
		et := names.ElementType(r.Name, explicit, prefix)
		elementTypeOf[r.Name] = et
		if !private {
			isPublic[et] = true
		}
	}

	ruleByName := g.RuleByName()
	edges := make(map[string][]string)
	seenEdge := make(map[string]map[string]bool)
	hasInheritance := make(map[string]bool)

	addEdge := func(parent, child string) {
		if seenEdge[parent] == nil {
			seenEdge[parent] = make(map[string]bool)
		}
		if seenEdge[parent][child] {
			return
		}
		seenEdge[parent][child] = true
		edges[parent] = append(edges[parent], child)
	}

	for _, r := range g.Rules {
		private := attrs.Bool(res, r.Name, "private", false)
		external := attrs.Bool(res, r.Name, "external", false)
		if private || external {
			continue
		}
		superName := attrs.String(res, r.Name, "extends", "")
		if superName == "" {
			continue
		}
		superRule, ok := ruleByName[superName]
		if !ok {
			continue
		}
		addEdge(elementTypeOf[superRule.Name], elementTypeOf[r.Name])
		hasInheritance[r.Name] = true
		hasInheritance[superRule.Name] = true
	}

	closeFixedPoint(edges, seenEdge)

	// Every public element type gets its reflexive self-entry, whether
	// or not it already appeared as an edges key (spec invariant 3).
	for et, public := range isPublic {
		if public {
			addEdgeIfAbsent(edges, seenEdge, et, et)
		}
	}

	return &Analysis{
		ElementTypeOf:        elementTypeOf,
		ExtendsMap:           edges,
		RulesWithInheritance: hasInheritance,
	}
}

func addEdgeIfAbsent(edges map[string][]string, seen map[string]map[string]bool, parent, child string) {
	if seen[parent] != nil && seen[parent][child] {
		return
	}
	if seen[parent] == nil {
		seen[parent] = make(map[string]bool)
	}
	seen[parent][child] = true
	edges[parent] = append(edges[parent], child)
}

// closeFixedPoint relaxes edges to a fixed point: repeatedly, for every
// parent->child edge, union in child's own descendants, until a full
// pass adds nothing new. This replaces the teacher-domain's bounded
// "size iterations" loop with genuine convergence (Design Note,
// "Inheritance closure fixed point"); cycles are idempotent because
// addEdgeIfAbsent is a no-op once an edge is already recorded.
func closeFixedPoint(edges map[string][]string, seen map[string]map[string]bool) {
	for {
		changed := false
		for parent, children := range edges {
			for _, child := range append([]string(nil), children...) {
				for _, grandchild := range edges[child] {
					if seen[parent] != nil && seen[parent][grandchild] {
						continue
					}
					addEdgeIfAbsent(edges, seen, parent, grandchild)
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}
