// Package compiler is the expression compiler: it turns one rule's
// expression tree into a generated function (plus one nested function
// per named sub-expression) emitted through internal/emit. It is the
// hard core of the generator.
//
// Grounded on the teacher's internal/grammar.EBNFParser for the overall
// tokenize-then-emit pipeline shape, and internal/orchestration.DSLGenerator
// for the one-function-per-concern string-building discipline. Neither
// is copied directly: both are financial-DSL-specific, and this package
// instead follows the generic recursive-descent generation contract laid
// out in SPEC_FULL.md section 4.4.
package compiler

import (
	"fmt"
	"regexp"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/gerrors"
	"parsergen/internal/grammarast"
	"parsergen/internal/inherit"
	"parsergen/internal/tokenset"
)

// Compile emits ruleName's own function, and every nested sub-function
// its body requires, into buf. ruleByName and unitOf let the compiler
// qualify cross-unit calls (a rule dispatched to a different output
// file than the one currently being written); tokens accumulates every
// bare-token reference encountered, for later consumption by the
// element-type emitter.
//
// Compile is a no-op for rules marked external: their body is supplied
// by hand-written code, and the generator must not emit one.
//
// forcePrivate is set by the dispatcher for exactly one rule: the
// grammar root, which per invariant 2 is always compiled with
// private's marker policy (drop/rollback, never its own done()) even
// if it isn't declared private — the root's real element type is
// assigned by the dispatcher's top-level parse() wrapper instead.
func Compile(buf *emit.Buffer, rule *grammarast.Rule, res *attrs.Resolver, an *inherit.Analysis, tokens *tokenset.Set, ruleByName map[string]*grammarast.Rule, unitOf func(string) string, thisUnit string, forcePrivate bool) (err error) {
	if attrs.Bool(res, rule.Name, "external", false) {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			if ue, ok := r.(*gerrors.UnexpectedExpressionError); ok {
				err = ue
				return
			}
			panic(r)
		}
	}()

	private := forcePrivate || attrs.Bool(res, rule.Name, "private", false)
	var metaParams []string
	if attrs.Bool(res, rule.Name, "meta", false) {
		metaParams = collectMetaParams(rule.Body)
	}

	c := &ctx{
		rule:       rule,
		res:        res,
		an:         an,
		tokens:     tokens,
		ruleByName: ruleByName,
		unitOf:     unitOf,
		thisUnit:   thisUnit,
		metaParams: metaParams,
		buf:        buf,
		visited:    make(map[grammarast.Expr]bool),
	}

	body := unwrapParenthesized(rule.Body)
	buf.EmitBlank()
	buf.Emit(fmt.Sprintf("static boolean %s(PsiBuilder builder, int level%s) {", rule.Name, c.paramsDecl()))
	if ref, ok := body.(*grammarast.Reference); ok && private {
		c.emitReferenceDelegation(ref)
	} else {
		c.compileFrame(rule.Name, body, !private, true)
	}
	buf.Emit("}")
	return nil
}

// ctx carries the state threaded through one rule's compilation: the
// rule itself (for attribute lookups scoped to it), the shared analysis
// tables, and the visited set that bounds recursion over shared
// sub-nodes.
type ctx struct {
	rule       *grammarast.Rule
	res        *attrs.Resolver
	an         *inherit.Analysis
	tokens     *tokenset.Set
	ruleByName map[string]*grammarast.Rule
	unitOf     func(string) string
	thisUnit   string
	metaParams []string
	buf        *emit.Buffer
	visited    map[grammarast.Expr]bool
	thunkSeq   int
}

func unwrapParenthesized(e grammarast.Expr) grammarast.Expr {
	for {
		p, ok := e.(*grammarast.Parenthesized)
		if !ok {
			return e
		}
		e = p.Child
	}
}

// collectMetaParams scans a meta rule's body for single-argument
// external references (the `<<p>>` shorthand) and returns the distinct
// parameter names, in first-seen order.
func collectMetaParams(body grammarast.Expr) []string {
	seen := make(map[string]bool)
	var names []string
	walk(body, func(e grammarast.Expr) {
		ext, ok := e.(*grammarast.External)
		if !ok || len(ext.Args) != 1 {
			return
		}
		ref, ok := ext.Args[0].(*grammarast.Reference)
		if !ok || seen[ref.Name] {
			return
		}
		seen[ref.Name] = true
		names = append(names, ref.Name)
	})
	return names
}

// walk visits every node in the tree rooted at e, e included.
func walk(e grammarast.Expr, visit func(grammarast.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *grammarast.Sequence:
		for _, c := range n.Children {
			walk(c, visit)
		}
	case *grammarast.Choice:
		for _, c := range n.Children {
			walk(c, visit)
		}
	case *grammarast.Optional:
		walk(n.Child, visit)
	case *grammarast.ZeroOrMore:
		walk(n.Child, visit)
	case *grammarast.OneOrMore:
		walk(n.Child, visit)
	case *grammarast.And:
		walk(n.Child, visit)
	case *grammarast.Not:
		walk(n.Child, visit)
	case *grammarast.Parenthesized:
		walk(n.Child, visit)
	case *grammarast.External:
		for _, a := range n.Args {
			walk(a, visit)
		}
	}
}

func (c *ctx) isMetaParam(name string) bool {
	for _, p := range c.metaParams {
		if p == name {
			return true
		}
	}
	return false
}

// paramsDecl renders the formal-parameter suffix every function
// signature in a meta rule carries (threaded through every recursive
// call emitted inside it); empty for a non-meta rule.
func (c *ctx) paramsDecl() string {
	s := ""
	for _, p := range c.metaParams {
		s += ", Parser " + p
	}
	return s
}

// paramsCall renders the matching actual-argument suffix.
func (c *ctx) paramsCall() string {
	s := ""
	for _, p := range c.metaParams {
		s += ", " + p
	}
	return s
}

func (c *ctx) qualify(ruleName string) string {
	unit := c.unitOf(ruleName)
	if unit != "" && unit != c.thisUnit {
		return unit + "."
	}
	return ""
}

// emitReferenceDelegation emits a function body that is nothing but a
// tail call: a rule (or a nested sub-expression collapsed down to one)
// whose body is a bare reference to another rule or a token never
// opens a marker of its own.
func (c *ctx) emitReferenceDelegation(ref *grammarast.Reference) {
	if target, ok := c.ruleByName[ref.Name]; ok {
		c.buf.Emit(fmt.Sprintf("return %s%s(builder, level + 1%s);", c.qualify(target.Name), ref.Name, c.paramsCall()))
		return
	}
	c.tokens.Add(ref.Name)
	c.buf.Emit(fmt.Sprintf("return consumeToken(builder, %s);", ref.Name))
}

// compileFrame emits the standard frame's statements (everything
// between the opening and closing brace already printed by the
// caller): the recursion guard, optional memoization short-circuit, the
// marker, the combinator body, the finally block's commit policy, and
// the final return.
func (c *ctx) compileFrame(funcName string, node grammarast.Expr, topLevelPublic, isTopLevel bool) {
	kind := node.Kind()
	memo := attrs.Bool(c.res, c.rule.Name, "memoization", false)

	c.buf.Emit(fmt.Sprintf("if (!recursion_guard_(builder, level, %q)) return false;", funcName))
	if memo {
		c.buf.Emit(fmt.Sprintf("if (memoizedFalseBranch(builder, %q)) return false;", funcName))
	}

	seed := "false"
	if kind == grammarast.KindOptional || kind == grammarast.KindZeroOrMore {
		seed = "true"
	}
	c.buf.Emit("boolean result = " + seed + ";")

	pinChildIndex := -1
	if isTopLevel && kind == grammarast.KindSequence {
		pinChildIndex = c.resolvePinIndex(node.(*grammarast.Sequence))
	}
	usesPinned := pinChildIndex >= 0
	if usesPinned {
		c.buf.Emit("boolean pinned = false;")
	}

	collapsible := isTopLevel && topLevelPublic && c.an.RulesWithInheritance[c.rule.Name]
	if collapsible {
		c.buf.Emit("int start = builder.getCurrentOffset();")
	}

	section := c.sectionKind(isTopLevel, kind, usesPinned)

	c.buf.Emit("PsiBuilder.Marker marker = builder.mark();")
	c.buf.Emit("try {")
	if section != "" {
		c.buf.Emit(fmt.Sprintf("enterErrorRecordingSection(builder, level, %s);", section))
	}

	switch n := node.(type) {
	case *grammarast.Reference:
		c.buf.Emit("result = " + c.compileChildCallSite(funcName, 0, n) + ";")
	case *grammarast.Sequence:
		c.compileSequence(funcName, n, pinChildIndex)
	case *grammarast.Choice:
		c.compileChoice(funcName, n)
	case *grammarast.Optional:
		c.buf.Emit(c.compileChildCallSite(funcName, 0, n.Child) + ";")
	case *grammarast.ZeroOrMore:
		c.compileRepeat(funcName, n.Child, false)
	case *grammarast.OneOrMore:
		c.compileRepeat(funcName, n.Child, true)
	case *grammarast.And:
		c.compileAndNot(funcName, n.Child, true)
	case *grammarast.Not:
		c.compileAndNot(funcName, n.Child, false)
	case *grammarast.External:
		c.buf.Emit("result = " + c.compileExternalInvocation(n) + ";")
	default:
		panic(&gerrors.UnexpectedExpressionError{Kind: kind, Where: funcName})
	}

	c.buf.Emit("}")
	c.buf.Emit("finally {")
	c.emitMarkerCommit(kind, topLevelPublic, isTopLevel, usesPinned, collapsible)
	if section != "" {
		thunk := "null"
		if section == "SECTION_RECOVER" {
			recoverUntil := attrs.String(c.res, c.rule.Name, "recoverUntil", "")
			thunk = c.recoveryThunk(recoverUntil)
		}
		c.buf.Emit(fmt.Sprintf("result = exitErrorRecordingSection(builder, result, level, %s, %s, %s);",
			pinnedExpr(usesPinned), section, thunk))
	}
	c.buf.Emit("}")

	if memo {
		c.buf.Emit("if (!result) {")
		c.buf.Emit(fmt.Sprintf("memoizeFalseBranch(builder, %q);", funcName))
		c.buf.Emit("}")
	}

	if usesPinned {
		c.buf.Emit("return result || pinned;")
	} else {
		c.buf.Emit("return result;")
	}
}

func pinnedExpr(usesPinned bool) string {
	if usesPinned {
		return "pinned"
	}
	return "false"
}

// resolvePinIndex resolves the rule's pin attribute, if any, into a
// 0-based child index within seq. A malformed or absent pin yields -1.
func (c *ctx) resolvePinIndex(seq *grammarast.Sequence) int {
	idx, pattern, ok := attrs.Pin(c.res, c.rule.Name)
	if !ok {
		return -1
	}
	if idx > 0 {
		if idx-1 < len(seq.Children) {
			return idx - 1
		}
		return -1
	}
	if pattern == "" {
		return -1
	}
	for i, ch := range seq.Children {
		if matched, _ := regexp.MatchString(pattern, ch.Text()); matched {
			return i
		}
	}
	return -1
}

func (c *ctx) sectionKind(isTopLevel bool, kind grammarast.ExprKind, usesPinned bool) string {
	if isTopLevel {
		if attrs.String(c.res, c.rule.Name, "recoverUntil", "") != "" {
			return "SECTION_RECOVER"
		}
	}
	switch kind {
	case grammarast.KindAnd:
		return "SECTION_AND"
	case grammarast.KindNot:
		return "SECTION_NOT"
	}
	if usesPinned {
		return "SECTION_GENERAL"
	}
	return ""
}

func (c *ctx) compileSequence(funcName string, seq *grammarast.Sequence, pinChildIndex int) {
	for i, child := range seq.Children {
		call := c.compileChildCallSite(funcName, i, child)
		if i == 0 {
			c.buf.Emit("result = " + call + ";")
		} else {
			c.buf.Emit("result = result && " + call + ";")
		}
		if i == pinChildIndex {
			c.buf.Emit("pinned = result;")
		}
	}
}

func (c *ctx) compileChoice(funcName string, ch *grammarast.Choice) {
	for i, child := range ch.Children {
		call := c.compileChildCallSite(funcName, i, child)
		if i == 0 {
			c.buf.Emit("result = " + call + ";")
			continue
		}
		c.buf.Emit("if (!result) {")
		c.buf.Emit("result = " + call + ";")
		c.buf.Emit("}")
	}
}

func (c *ctx) compileRepeat(funcName string, child grammarast.Expr, oneOrMore bool) {
	call := c.compileChildCallSite(funcName, 0, child)
	if oneOrMore {
		c.buf.Emit("result = " + call + ";")
	}
	c.buf.Emit("int offset = builder.getCurrentOffset();")
	c.buf.Emit("while (result && !builder.eof()) {")
	c.buf.Emit("if (!(" + call + ")) {")
	c.buf.Emit("break;")
	c.buf.Emit("}")
	c.buf.Emit("int next = builder.getCurrentOffset();")
	c.buf.Emit("if (next == offset) {")
	c.buf.Emit(fmt.Sprintf("builder.error(%q);", "Empty element parsed in "+funcName))
	c.buf.Emit("break;")
	c.buf.Emit("}")
	c.buf.Emit("offset = next;")
	c.buf.Emit("}")
}

func (c *ctx) compileAndNot(funcName string, child grammarast.Expr, isAnd bool) {
	call := c.compileChildCallSite(funcName, 0, child)
	if isAnd {
		c.buf.Emit("result = " + call + ";")
	} else {
		c.buf.Emit("result = !(" + call + ");")
	}
}

// emitMarkerCommit emits the finally block's marker disposition per the
// rule-scope-dependent policy: And/Not always rollback; a public rule's
// own top-level frame commits a typed node (or collapses into the
// latest done marker, if it participates in inheritance); every other
// frame drops on success and rolls back on failure, except
// Optional/ZeroOrMore which always drop.
func (c *ctx) emitMarkerCommit(kind grammarast.ExprKind, topLevelPublic, isTopLevel, usesPinned, collapsible bool) {
	if kind == grammarast.KindAnd || kind == grammarast.KindNot {
		c.buf.Emit("marker.rollbackTo();")
		return
	}

	if topLevelPublic && isTopLevel {
		cond := "result"
		if usesPinned {
			cond = "result || pinned"
		}
		elementType := c.an.ElementTypeOf[c.rule.Name]
		if collapsible {
			c.buf.Emit("PsiBuilder.Marker latest = builder.getLatestDoneMarker();")
			c.buf.Emit(fmt.Sprintf("if (latest != null && latest.getStartOffset() == start && type_extends_(%s, latest.getTokenType())) {", elementType))
			c.buf.Emit("marker.drop();")
			c.buf.Emit("} else if (" + cond + ") {")
			c.buf.Emit(fmt.Sprintf("marker.done(%s);", elementType))
			c.buf.Emit("} else {")
			c.buf.Emit("marker.rollbackTo();")
			c.buf.Emit("}")
			return
		}
		c.buf.Emit("if (" + cond + ") {")
		c.buf.Emit(fmt.Sprintf("marker.done(%s);", elementType))
		c.buf.Emit("} else {")
		c.buf.Emit("marker.rollbackTo();")
		c.buf.Emit("}")
		return
	}

	if kind == grammarast.KindOptional || kind == grammarast.KindZeroOrMore {
		c.buf.Emit("marker.drop();")
		return
	}

	cond := "result"
	if usesPinned {
		cond = "result || pinned"
	}
	c.buf.Emit("if (" + cond + ") {")
	c.buf.Emit("marker.drop();")
	c.buf.Emit("} else {")
	c.buf.Emit("marker.rollbackTo();")
	c.buf.Emit("}")
}

// compileChildCallSite returns the call expression for one child of a
// combinator body. A bare reference, literal, or external call is
// always inlined directly; anything else needs its own nested function,
// emitted here and named funcName_index.
func (c *ctx) compileChildCallSite(funcName string, index int, child grammarast.Expr) string {
	child = unwrapParenthesized(child)
	switch v := child.(type) {
	case *grammarast.Reference:
		if target, ok := c.ruleByName[v.Name]; ok {
			return fmt.Sprintf("%s%s(builder, level + 1%s)", c.qualify(target.Name), v.Name, c.paramsCall())
		}
		c.tokens.Add(v.Name)
		return fmt.Sprintf("consumeToken(builder, %s)", v.Name)
	case *grammarast.StringLiteral:
		return fmt.Sprintf("consumeToken(builder, %q)", v.Value)
	case *grammarast.NumberLiteral:
		return fmt.Sprintf("consumeToken(builder, %q)", v.Value)
	case *grammarast.External:
		return c.compileExternalInvocation(v)
	default:
		name := fmt.Sprintf("%s_%d", funcName, index)
		c.emitNestedFunc(name, child)
		return fmt.Sprintf("%s(builder, level + 1%s)", name, c.paramsCall())
	}
}

// emitNestedFunc emits a private, non-top-level frame for a composite
// sub-expression. node identity gates re-emission: a sub-node reachable
// from more than one call site is only ever compiled once.
func (c *ctx) emitNestedFunc(name string, node grammarast.Expr) {
	if c.visited[node] {
		return
	}
	c.visited[node] = true
	node = unwrapParenthesized(node)

	c.buf.EmitBlank()
	c.buf.Emit(fmt.Sprintf("static boolean %s(PsiBuilder builder, int level%s) {", name, c.paramsDecl()))
	if ref, ok := node.(*grammarast.Reference); ok {
		c.emitReferenceDelegation(ref)
	} else {
		c.compileFrame(name, node, false, false)
	}
	c.buf.Emit("}")
}

// compileExternalInvocation renders the call expression for an External
// node: a bare meta-parameter invocation (<<p>>), a call to another
// meta rule (whose grammar arguments are reified as parser-thunks), or
// a plain external function call.
func (c *ctx) compileExternalInvocation(ext *grammarast.External) string {
	if len(ext.Args) == 1 {
		if ref, ok := ext.Args[0].(*grammarast.Reference); ok && c.isMetaParam(ref.Name) {
			return ref.Name + ".parse(builder)"
		}
	}

	if target, ok := c.ruleByName[ext.Head]; ok && attrs.Bool(c.res, target.Name, "meta", false) {
		args := c.paramsCall()
		for _, a := range ext.Args {
			args += ", " + c.reifyThunk(a)
		}
		return fmt.Sprintf("%s%s(builder, level + 1%s)", c.qualify(target.Name), ext.Head, args)
	}

	args := ""
	for _, a := range ext.Args {
		args += ", " + c.compileExternalArg(a)
	}
	return fmt.Sprintf("%s(builder, level%s)", ext.Head, args)
}

func (c *ctx) compileExternalArg(a grammarast.Expr) string {
	switch v := a.(type) {
	case *grammarast.StringLiteral:
		return fmt.Sprintf("%q", v.Value)
	case *grammarast.NumberLiteral:
		return v.Value
	default:
		return c.reifyThunk(a)
	}
}

// reifyThunk wraps an expression argument into an anonymous single-method
// Parser object, so it can be invoked lazily at the callee's discretion
// (spec section 4.4's "call-site thunk reification").
func (c *ctx) reifyThunk(a grammarast.Expr) string {
	a = unwrapParenthesized(a)
	var call string
	switch v := a.(type) {
	case *grammarast.Reference:
		if target, ok := c.ruleByName[v.Name]; ok {
			call = fmt.Sprintf("%s%s(builder, level + 1%s)", c.qualify(target.Name), v.Name, c.paramsCall())
		} else {
			c.tokens.Add(v.Name)
			call = fmt.Sprintf("consumeToken(builder, %s)", v.Name)
		}
	default:
		c.thunkSeq++
		name := fmt.Sprintf("%s_thunk%d", c.rule.Name, c.thunkSeq)
		c.emitNestedFunc(name, a)
		call = fmt.Sprintf("%s(builder, level + 1%s)", name, c.paramsCall())
	}
	return "new Parser() { public boolean parse(PsiBuilder builder) { return " + call + "; } }"
}

// recoveryThunk wraps the recoverUntil rule into the same thunk shape,
// for exitErrorRecordingSection's optional recovery argument.
func (c *ctx) recoveryThunk(ruleName string) string {
	if ruleName == "" {
		return "null"
	}
	call := fmt.Sprintf("%s%s(builder, level + 1)", c.qualify(ruleName), ruleName)
	return "new Parser() { public boolean parse(PsiBuilder builder) { return " + call + "; } }"
}
