// Package attrs resolves grammar attributes with defaults and pattern
// scoping. It is grounded on the teacher's runtime.AttributeResolver:
// an ordered chain of candidate sources is tried, the first hit wins.
package attrs

import (
	"regexp"

	"parsergen/internal/grammarast"
)

// Overrides is the external, optionally-configured source consulted
// between rule-local attributes and the in-grammar root scope (see
// SPEC_FULL.md section 4.2). A nil Overrides disables the tier entirely.
type Overrides interface {
	RootAttr(grammarName, name string) (any, bool)
	RuleAttr(grammarName, ruleName, name string) (any, bool)
}

// Resolver answers attr(scope, name, default, match?) queries for a
// single grammar.
type Resolver struct {
	grammarName string
	root        grammarast.AttributeBag
	rules       map[string]grammarast.AttributeBag
	overrides   Overrides
}

// New builds a Resolver for the given grammar. grammarName identifies
// the grammar to the overrides source (empty string if unused).
func New(g *grammarast.Grammar, grammarName string, overrides Overrides) *Resolver {
	rules := make(map[string]grammarast.AttributeBag, len(g.Rules))
	for _, r := range g.Rules {
		rules[r.Name] = r.Attrs
	}
	return &Resolver{
		grammarName: grammarName,
		root:        g.RootAttrs,
		rules:       rules,
		overrides:   overrides,
	}
}

// Rule resolves a rule-scoped (or root-scoped, if ruleName is empty)
// attribute. match is the text an attribute's pattern qualifier is
// tested against; callers typically pass the rule name itself, or a
// sub-expression's source text when resolving an attribute that may be
// qualified to a specific alternative.
//
// Resolution order, earliest wins:
//
//	(a) rule-local attribute whose pattern matches `match`
//	(b) rule-local attribute with no pattern
//	(c) overrides source (rule-scoped, then root-scoped), if configured
//	(d) root attribute
//	(e) default
func (r *Resolver) Rule(ruleName, name string, def any, match string) any {
	if ruleName != "" {
		if bag, ok := r.rules[ruleName]; ok {
			if v, ok := lookup(bag, name, match); ok {
				return v
			}
		}
	}
	if r.overrides != nil {
		if ruleName != "" {
			if v, ok := r.overrides.RuleAttr(r.grammarName, ruleName, name); ok {
				return v
			}
		}
		if v, ok := r.overrides.RootAttr(r.grammarName, name); ok {
			return v
		}
	}
	if v, ok := lookup(r.root, name, match); ok {
		return v
	}
	return def
}

// Root resolves a root-scoped attribute (no rule-local tier).
func (r *Resolver) Root(name string, def any) any {
	return r.Rule("", name, def, name)
}

func lookup(bag grammarast.AttributeBag, name, match string) (any, bool) {
	for _, a := range bag {
		if a.Name != name || a.Pattern == "" {
			continue
		}
		if ok, _ := regexp.MatchString(a.Pattern, match); ok {
			return a.Value, true
		}
	}
	for _, a := range bag {
		if a.Name == name && a.Pattern == "" {
			return a.Value, true
		}
	}
	return nil, false
}

// Pin resolves a rule's pin attribute into either a 1-based sequence
// index or a regex to match against a child's source text. ok is false
// when the attribute is absent or of an unrecognized type — per spec
// section 7, a malformed pin is silently ignored, never an error.
func Pin(r *Resolver, ruleName string) (index int, pattern string, ok bool) {
	v := r.Rule(ruleName, "pin", nil, ruleName)
	switch val := v.(type) {
	case int:
		return val, "", true
	case string:
		return 0, val, true
	default:
		return 0, "", false
	}
}

// Bool resolves a boolean-valued attribute (memoization, generatePsi,
// private, external, meta, ...), defaulting to def for any value that
// isn't a literal bool.
func Bool(r *Resolver, ruleName, name string, def bool) bool {
	v := r.Rule(ruleName, name, def, ruleName)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// String resolves a string-valued attribute, defaulting to def for any
// value that isn't a string.
func String(r *Resolver, ruleName, name, def string) string {
	v := r.Rule(ruleName, name, def, ruleName)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
