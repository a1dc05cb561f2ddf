// Package gload loads a grammarast.Grammar from the JSON fixture format
// cmd/parsergen's generate command reads from disk. The real BNF
// front-end that would parse grammar source text into this tree is out
// of scope (an external collaborator); this package only has to get a
// JSON-serialized tree back into grammarast's sealed Expr variants,
// following the same Kind-tagged-envelope-plus-json.RawMessage
// discipline the teacher uses for its IR steps (internal/ir.Step).
package gload

import (
	"encoding/json"
	"fmt"
	"os"

	"parsergen/internal/grammarast"
)

// attrJSON mirrors grammarast.Attribute.
type attrJSON struct {
	Name    string `json:"name"`
	Value   any    `json:"value"`
	Pattern string `json:"pattern,omitempty"`
}

// ruleJSON mirrors grammarast.Rule, with Body left raw until its Kind
// tag is known.
type ruleJSON struct {
	Name  string          `json:"name"`
	Attrs []attrJSON      `json:"attrs,omitempty"`
	Body  json.RawMessage `json:"body"`
}

// document mirrors grammarast.Grammar.
type document struct {
	RootAttrs []attrJSON `json:"rootAttrs,omitempty"`
	Rules     []ruleJSON `json:"rules"`
}

// exprEnvelope is the union of every field any Expr variant's JSON
// encoding might carry; which fields are read depends on Kind.
type exprEnvelope struct {
	Kind     string            `json:"kind"`
	Text     string            `json:"text,omitempty"`
	Name     string            `json:"name,omitempty"`
	Value    string            `json:"value,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
	Child    json.RawMessage   `json:"child,omitempty"`
	Head     string            `json:"head,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`
}

// Load reads and decodes a grammar fixture from path.
func Load(path string) (*grammarast.Grammar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gload: failed to read %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode parses a grammar fixture already read into memory.
func Decode(raw []byte) (*grammarast.Grammar, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gload: failed to parse grammar document: %w", err)
	}

	g := &grammarast.Grammar{RootAttrs: toAttrs(doc.RootAttrs)}
	for _, rj := range doc.Rules {
		body, err := decodeExpr(rj.Body)
		if err != nil {
			return nil, fmt.Errorf("gload: rule %q: %w", rj.Name, err)
		}
		g.Rules = append(g.Rules, &grammarast.Rule{
			Name:  rj.Name,
			Body:  body,
			Attrs: toAttrs(rj.Attrs),
		})
	}
	if len(g.Rules) == 0 {
		return nil, fmt.Errorf("gload: grammar document declares no rules")
	}
	return g, nil
}

func toAttrs(in []attrJSON) grammarast.AttributeBag {
	if len(in) == 0 {
		return nil
	}
	bag := make(grammarast.AttributeBag, 0, len(in))
	for _, a := range in {
		bag = append(bag, grammarast.Attribute{Name: a.Name, Value: normalizeValue(a.Value), Pattern: a.Pattern})
	}
	return bag
}

// normalizeValue narrows json.Unmarshal's float64-for-every-number
// default back to int whenever the value carries no fractional part,
// since attrs.Pin and friends switch on concrete Go int.
func normalizeValue(v any) any {
	if f, ok := v.(float64); ok && f == float64(int(f)) {
		return int(f)
	}
	return v
}

func decodeExpr(raw json.RawMessage) (grammarast.Expr, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing expression body")
	}
	var env exprEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed expression: %w", err)
	}

	switch env.Kind {
	case "reference":
		return grammarast.NewReference(env.Name), nil
	case "string":
		return grammarast.NewStringLiteral(env.Value), nil
	case "number":
		return grammarast.NewNumberLiteral(env.Value), nil
	case "sequence", "choice":
		children := make([]grammarast.Expr, 0, len(env.Children))
		for _, c := range env.Children {
			ce, err := decodeExpr(c)
			if err != nil {
				return nil, err
			}
			children = append(children, ce)
		}
		if env.Kind == "sequence" {
			return grammarast.NewSequence(env.Text, children...), nil
		}
		return grammarast.NewChoice(env.Text, children...), nil
	case "optional", "zeroOrMore", "oneOrMore", "and", "not", "paren":
		child, err := decodeExpr(env.Child)
		if err != nil {
			return nil, err
		}
		switch env.Kind {
		case "optional":
			return grammarast.NewOptional(env.Text, child), nil
		case "zeroOrMore":
			return grammarast.NewZeroOrMore(env.Text, child), nil
		case "oneOrMore":
			return grammarast.NewOneOrMore(env.Text, child), nil
		case "and":
			return grammarast.NewAnd(env.Text, child), nil
		case "not":
			return grammarast.NewNot(env.Text, child), nil
		default: // "paren"
			return grammarast.NewParenthesized(env.Text, child), nil
		}
	case "external":
		args := make([]grammarast.Expr, 0, len(env.Args))
		for _, a := range env.Args {
			ae, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return grammarast.NewExternal(env.Text, env.Head, args...), nil
	default:
		return nil, fmt.Errorf("unrecognized expression kind %q", env.Kind)
	}
}
