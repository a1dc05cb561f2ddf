package psi

import (
	"strings"
	"testing"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/grammarast"
)

func TestFromGrammarCardinality(t *testing.T) {
	// stmt ::= IF_ expr THEN_ block (ELSE_ block)?
	body := grammarast.NewSequence("IF_ expr THEN_ block (ELSE_ block)?",
		grammarast.NewReference("IF_"),
		grammarast.NewReference("expr"),
		grammarast.NewReference("THEN_"),
		grammarast.NewReference("block"),
		grammarast.NewOptional("(ELSE_ block)?", grammarast.NewSequence("ELSE_ block",
			grammarast.NewReference("ELSE_"), grammarast.NewReference("block"))),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "stmt", Body: body},
		{Name: "expr", Body: grammarast.NewReference("NUM_")},
		{Name: "block", Body: grammarast.NewReference("LBRACE_")},
	}}
	helper := FromGrammar(g)
	children := helper.Children("stmt")

	byName := map[string]Child{}
	for _, c := range children {
		byName[c.Name] = c
	}

	if byName["expr"].Cardinality != Required || byName["expr"].IsToken {
		t.Errorf("expected expr to be a required rule child, got %+v", byName["expr"])
	}
	if byName["IF_"].Cardinality != Required || !byName["IF_"].IsToken {
		t.Errorf("expected IF_ to be a required token child, got %+v", byName["IF_"])
	}
	// block appears once required, once under Optional -> merged to Optional.
	if byName["block"].Cardinality != Optional {
		t.Errorf("expected block to merge to Optional, got %+v", byName["block"])
	}
}

func TestEmitInterfaceAndImpl(t *testing.T) {
	body := grammarast.NewSequence("mulExpr (PLUS_ mulExpr)*",
		grammarast.NewReference("mulExpr"),
		grammarast.NewZeroOrMore("(PLUS_ mulExpr)*", grammarast.NewSequence("PLUS_ mulExpr",
			grammarast.NewReference("PLUS_"), grammarast.NewReference("mulExpr"))),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "addExpr", Body: body, Attrs: grammarast.AttributeBag{{Name: "extends", Value: "expr"}}},
		{Name: "mulExpr", Body: grammarast.NewReference("NUM_")},
		{Name: "expr", Body: grammarast.NewReference("addExpr")},
	}}
	res := attrs.New(g, "", nil)
	helper := FromGrammar(g)
	rule := g.RuleByName()["addExpr"]

	var ifaceSb, implSb strings.Builder
	ifaceBuf := emit.NewBuffer(&ifaceSb)
	implBuf := emit.NewBuffer(&implSb)
	Emit(ifaceBuf, implBuf, rule, res, helper, Config{
		PsiPackage:     "com.example.psi",
		PsiImplPackage: "com.example.psi.impl",
	})
	ifaceBuf.Close()
	implBuf.Close()

	iface := ifaceSb.String()
	for _, want := range []string{
		"package com.example.psi;",
		"public interface AddExpr extends Expr {",
		"@NotNull List<MulExpr> getMulExprList();",
	} {
		if !strings.Contains(iface, want) {
			t.Errorf("expected interface to contain %q, got:\n%s", want, iface)
		}
	}

	impl := implSb.String()
	for _, want := range []string{
		"package com.example.psi.impl;",
		"public class AddExprImpl extends ASTWrapperPsiElement implements AddExpr {",
		"public AddExprImpl(ASTNode node) {",
		"super(node);",
		"public @NotNull List<MulExpr> getMulExprList() {",
		"return getChildrenOfTypeAsList(this, MulExpr.class);",
		"public @NotNull List<PsiElement> getPlusList() {",
		"getNode().getChildren(TokenSet.create(PLUS_))",
	} {
		if !strings.Contains(impl, want) {
			t.Errorf("expected impl to contain %q, got:\n%s", want, impl)
		}
	}
}

func TestFilterAmbiguousDropsMixedCase(t *testing.T) {
	in := []Child{
		{Name: "expr", Cardinality: Required},
		{Name: "PLUS_", IsToken: true, Cardinality: Required},
		{Name: "WeirdName", Cardinality: Required},
	}
	out := filterAmbiguous(in)
	if len(out) != 2 {
		t.Fatalf("expected ambiguous mixed-case name dropped, got %+v", out)
	}
}
