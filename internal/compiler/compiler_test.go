package compiler

import (
	"strings"
	"testing"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/grammarast"
	"parsergen/internal/inherit"
	"parsergen/internal/tokenset"
)

func compileOne(t *testing.T, g *grammarast.Grammar, ruleName string) string {
	t.Helper()
	res := attrs.New(g, "", nil)
	an := inherit.Analyze(g, res)
	tokens := tokenset.New()
	ruleByName := g.RuleByName()

	var sb strings.Builder
	buf := emit.NewBuffer(&sb)
	rule := ruleByName[ruleName]
	if err := Compile(buf, rule, res, an, tokens, ruleByName, func(string) string { return "" }, "", false); err != nil {
		t.Fatalf("Compile(%s): %v", ruleName, err)
	}
	buf.Close()
	return sb.String()
}

func TestCompileSimpleChoiceSequence(t *testing.T) {
	// root ::= A_ | B_
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "root", Body: grammarast.NewChoice("A_|B_", grammarast.NewReference("A_"), grammarast.NewReference("B_"))},
	}}
	out := compileOne(t, g, "root")

	for _, want := range []string{
		"static boolean root(PsiBuilder builder, int level) {",
		`if (!recursion_guard_(builder, level, "root")) return false;`,
		"result = consumeToken(builder, A_);",
		"if (!result) {",
		"result = consumeToken(builder, B_);",
		"marker.done(",
		"marker.rollbackTo();",
		"return result;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompileSequenceWithPin(t *testing.T) {
	// stmt ::= IF_ expr THEN_ block  { pin = 2 }
	seq := grammarast.NewSequence("IF_ expr THEN_ block",
		grammarast.NewReference("IF_"),
		grammarast.NewReference("expr"),
		grammarast.NewReference("THEN_"),
		grammarast.NewReference("block"),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "stmt", Body: seq, Attrs: grammarast.AttributeBag{{Name: "pin", Value: 2}}},
		{Name: "expr", Body: grammarast.NewReference("NUM_")},
		{Name: "block", Body: grammarast.NewReference("LBRACE_")},
	}}
	out := compileOne(t, g, "stmt")

	for _, want := range []string{
		"boolean pinned = false;",
		"result = consumeToken(builder, IF_);",
		"result = result && expr(builder, level + 1);",
		"pinned = result;",
		"result = result && consumeToken(builder, THEN_);",
		"result = result && block(builder, level + 1);",
		"return result || pinned;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompileZeroOrMoreEmptyProgressCheck(t *testing.T) {
	// list ::= (item)*
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "list", Body: grammarast.NewZeroOrMore("(item)*", grammarast.NewReference("item"))},
		{Name: "item", Body: grammarast.NewReference("ITEM_")},
	}}
	out := compileOne(t, g, "list")

	for _, want := range []string{
		"boolean result = true;",
		"int offset = builder.getCurrentOffset();",
		"while (result && !builder.eof()) {",
		"if (!(item(builder, level + 1))) {",
		"break;",
		"int next = builder.getCurrentOffset();",
		"if (next == offset) {",
		`builder.error("Empty element parsed in list");`,
		"offset = next;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompileInheritanceCollapse(t *testing.T) {
	// expr ::= addExpr
	// addExpr ::= mulExpr (PLUS_ mulExpr)*   { extends = expr }
	// mulExpr ::= NUM_                        { extends = expr }
	addExpr := grammarast.NewSequence("mulExpr (PLUS_ mulExpr)*",
		grammarast.NewReference("mulExpr"),
		grammarast.NewZeroOrMore("(PLUS_ mulExpr)*", grammarast.NewSequence("PLUS_ mulExpr",
			grammarast.NewReference("PLUS_"), grammarast.NewReference("mulExpr"))),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "expr", Body: grammarast.NewReference("addExpr")},
		{Name: "addExpr", Body: addExpr, Attrs: grammarast.AttributeBag{{Name: "extends", Value: "expr"}}},
		{Name: "mulExpr", Body: grammarast.NewReference("NUM_"), Attrs: grammarast.AttributeBag{{Name: "extends", Value: "expr"}}},
	}}
	out := compileOne(t, g, "addExpr")

	for _, want := range []string{
		"int start = builder.getCurrentOffset();",
		"PsiBuilder.Marker latest = builder.getLatestDoneMarker();",
		"latest.getStartOffset() == start",
		"type_extends_(ADD_EXPR, latest.getTokenType())",
		"marker.drop();",
		"} else if (result) {",
		"marker.done(ADD_EXPR);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompilePublicReferenceBodyGetsFullFrame(t *testing.T) {
	// expr ::= addExpr
	// addExpr ::= mulExpr '+' mulExpr   { extends = expr }
	addExpr := grammarast.NewSequence("mulExpr PLUS_ mulExpr",
		grammarast.NewReference("mulExpr"),
		grammarast.NewReference("PLUS_"),
		grammarast.NewReference("mulExpr"),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "expr", Body: grammarast.NewReference("addExpr")},
		{Name: "addExpr", Body: addExpr, Attrs: grammarast.AttributeBag{{Name: "extends", Value: "expr"}}},
		{Name: "mulExpr", Body: grammarast.NewReference("NUM_"), Attrs: grammarast.AttributeBag{{Name: "extends", Value: "expr"}}},
	}}
	out := compileOne(t, g, "expr")

	for _, want := range []string{
		"static boolean expr(PsiBuilder builder, int level) {",
		`if (!recursion_guard_(builder, level, "expr")) return false;`,
		"int start = builder.getCurrentOffset();",
		"PsiBuilder.Marker marker = builder.mark();",
		"result = addExpr(builder, level + 1);",
		"PsiBuilder.Marker latest = builder.getLatestDoneMarker();",
		"type_extends_(EXPR, latest.getTokenType())",
		"marker.drop();",
		"} else if (result) {",
		"marker.done(EXPR);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "return addExpr(builder, level + 1);") {
		t.Errorf("a public reference-bodied rule must not collapse to a bare delegation, got:\n%s", out)
	}
}

func TestCompileNotLookaheadWithRecovery(t *testing.T) {
	// stmt ::= !EOF_ NUM_   { recoverUntil = statementBoundary }
	seq := grammarast.NewSequence("!EOF_ NUM_",
		grammarast.NewNot("!EOF_", grammarast.NewReference("EOF_")),
		grammarast.NewReference("NUM_"),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "stmt", Body: seq, Attrs: grammarast.AttributeBag{{Name: "recoverUntil", Value: "statementBoundary"}}},
		{Name: "statementBoundary", Body: grammarast.NewReference("SEMI_")},
	}}
	out := compileOne(t, g, "stmt")

	for _, want := range []string{
		"enterErrorRecordingSection(builder, level, SECTION_RECOVER);",
		"stmt_0(builder, level + 1)",
		"new Parser() { public boolean parse(PsiBuilder builder) { return statementBoundary(builder, level + 1); } }",
		"exitErrorRecordingSection(builder, result, level, false, SECTION_RECOVER,",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	nestedOut := compileOne(t, g, "stmt")
	if !strings.Contains(nestedOut, `static boolean stmt_0(PsiBuilder builder, int level) {`) {
		t.Errorf("expected a nested function for the Not sub-expression, got:\n%s", nestedOut)
	}
	if !strings.Contains(nestedOut, "result = !(consumeToken(builder, EOF_));") {
		t.Errorf("expected negated lookahead result, got:\n%s", nestedOut)
	}
	if !strings.Contains(nestedOut, "marker.rollbackTo();") {
		t.Errorf("expected unconditional rollback for Not frame, got:\n%s", nestedOut)
	}
}

func TestCompileMetaRuleThreadsParams(t *testing.T) {
	// commaList ::= <<p>> (COMMA_ <<p>>)*   { meta = true }
	body := grammarast.NewSequence("<<p>> (COMMA_ <<p>>)*",
		grammarast.NewExternal("<<p>>", "", grammarast.NewReference("p")),
		grammarast.NewZeroOrMore("(COMMA_ <<p>>)*", grammarast.NewSequence("COMMA_ <<p>>",
			grammarast.NewReference("COMMA_"),
			grammarast.NewExternal("<<p>>", "", grammarast.NewReference("p")))),
	)
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "commaList", Body: body, Attrs: grammarast.AttributeBag{{Name: "meta", Value: true}}},
	}}
	out := compileOne(t, g, "commaList")

	for _, want := range []string{
		"static boolean commaList(PsiBuilder builder, int level, Parser p) {",
		"result = p.parse(builder);",
		"static boolean commaList_1(PsiBuilder builder, int level, Parser p) {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompileExternalSuppressesBody(t *testing.T) {
	g := &grammarast.Grammar{Rules: []*grammarast.Rule{
		{Name: "customToken", Body: grammarast.NewReference("X_"), Attrs: grammarast.AttributeBag{{Name: "external", Value: true}}},
	}}
	out := compileOne(t, g, "customToken")
	if out != "" {
		t.Errorf("expected no emitted body for an external rule, got:\n%s", out)
	}
}
