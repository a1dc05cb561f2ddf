package dispatch

import (
	"fmt"
	"sort"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/gerrors"
	"parsergen/internal/grammarast"
	"parsergen/internal/inherit"
	"parsergen/internal/names"
	"parsergen/internal/psi"
	"parsergen/internal/tokenset"
)

// emitParseEntryPoint emits the root unit's single public parse()
// dispatch point (spec section 4.5): direct-call the matching public,
// non-external, non-root rule if rootType names one; otherwise wrap the
// root rule in a marker that always closes with rootType, draining any
// remaining input first. This is the only place the emitted parser is
// allowed to advance past the grammar's nominal end.
func emitParseEntryPoint(buf *emit.Buffer, g *grammarast.Grammar, res *attrs.Resolver, an *inherit.Analysis, ruleByName map[string]*grammarast.Rule, unitOf func(string) string, thisUnit string) {
	root := g.RootRule()

	buf.EmitBlank()
	buf.Emit("public static ASTNode parse(IElementType rootType, PsiBuilder builder) {")
	buf.Emit("boolean result;")

	first := true
	for _, r := range g.Rules {
		if r == root {
			continue
		}
		if attrs.Bool(res, r.Name, "private", false) || attrs.Bool(res, r.Name, "external", false) {
			continue
		}
		cond := fmt.Sprintf("if (rootType == %s) {", an.ElementTypeOf[r.Name])
		if !first {
			cond = "else " + cond
		}
		first = false
		buf.Emit(cond)
		call := r.Name + "(builder, 0)"
		if unit := unitOf(r.Name); unit != "" && unit != thisUnit {
			call = unit + "." + call
		}
		buf.Emit("result = " + call + ";")
		buf.Emit("}")
	}

	elseOpen := "else {"
	if first {
		elseOpen = "{"
	}
	buf.Emit(elseOpen)
	buf.Emit("PsiBuilder.Marker marker = builder.mark();")
	rootCall := root.Name + "(builder, 0)"
	if unit := unitOf(root.Name); unit != "" && unit != thisUnit {
		rootCall = unit + "." + rootCall
	}
	buf.Emit("result = " + rootCall + ";")
	buf.Emit("while (!builder.eof()) {")
	buf.Emit("builder.advanceLexer();")
	buf.Emit("}")
	buf.Emit("marker.done(rootType);")
	buf.Emit("}")

	buf.Emit("return builder.getTreeBuilt();")
	buf.Emit("}")
}

// emitTypeExtends emits the type_extends_ predicate, backed by one
// TokenSet per parent in an's ExtendsMap: true iff some single set
// contains both arguments (spec section 4.5). Parent keys are sorted
// for deterministic output; the map itself carries no ordering
// guarantee.
func emitTypeExtends(buf *emit.Buffer, an *inherit.Analysis) {
	parents := make([]string, 0, len(an.ExtendsMap))
	for parent := range an.ExtendsMap {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	buf.EmitBlank()
	buf.Emit("private static final TokenSet[] EXTENDS_SETS = new TokenSet[] {")
	for _, parent := range parents {
		members := append([]string{parent}, an.ExtendsMap[parent]...)
		buf.Emit("TokenSet.create(" + joinComma(members) + "),")
	}
	buf.Emit("};")

	buf.EmitBlank()
	buf.Emit("public static boolean type_extends_(IElementType parent, IElementType child) {")
	buf.Emit("for (TokenSet set : EXTENDS_SETS) {")
	buf.Emit("if (set.contains(parent) && set.contains(child)) {")
	buf.Emit("return true;")
	buf.Emit("}")
	buf.Emit("}")
	buf.Emit("return false;")
	buf.Emit("}")
}

func joinComma(items []string) string {
	s := ""
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it
	}
	return s
}

// emitHolderUnit writes the element-type holder unit (spec section
// 4.6): one constant per public rule's element type plus one per
// simple token accumulated during compilation, and a PSI factory when
// PSI generation is enabled.
func emitHolderUnit(g *grammarast.Grammar, res *attrs.Resolver, an *inherit.Analysis, tokens *tokenset.Set, w UnitWriter, holderClassName string, generatePsi bool, report *Report, runID, header string) error {
	buf, n, err := openCounting(w, holderClassName)
	if err != nil {
		return err
	}
	emitFileHeader(buf, header)

	var rules []emit.PublicRule
	seenElementType := make(map[string]bool)
	for _, r := range g.Rules {
		if r == g.RootRule() {
			continue
		}
		if attrs.Bool(res, r.Name, "private", false) || attrs.Bool(res, r.Name, "external", false) {
			continue
		}
		elementType := an.ElementTypeOf[r.Name]
		if seenElementType[elementType] {
			continue
		}
		seenElementType[elementType] = true
		pr := emit.PublicRule{RuleName: r.Name, ElementType: elementType}
		if generatePsi {
			prefix := attrs.String(res, r.Name, "psiClassPrefix", "")
			suffix := attrs.String(res, r.Name, "psiImplClassSuffix", "")
			pr.PsiInterface = names.PsiInterfaceName(r.Name, prefix)
			pr.PsiImplClass = names.PsiImplName(r.Name, prefix, suffix)
		}
		rules = append(rules, pr)
	}

	var toks []emit.TokenConstant
	for _, t := range tokens.Items() {
		toks = append(toks, emit.TokenConstant{TokenName: t})
	}

	pkgStr := attrs.String(res, "", "elementTypeHolderPackage", "")
	emit.EmitHolder(buf, emit.HolderConfig{PackageName: pkgStr, ClassName: holderClassName, GeneratePsi: generatePsi}, rules, toks)

	if cerr := buf.Close(); cerr != nil {
		return &gerrors.IOError{Path: holderClassName, Err: cerr}
	}
	report.Files = append(report.Files, FileReport{Unit: holderClassName, Bytes: *n})
	return nil
}

// emitPsiUnits writes the two PSI files (interface, implementation) for
// every public rule, via internal/psi.
func emitPsiUnits(g *grammarast.Grammar, res *attrs.Resolver, helper psi.GraphHelper, cfg psi.Config, w UnitWriter, report *Report, runID, header string) error {
	for _, r := range g.Rules {
		if r == g.RootRule() {
			continue
		}
		if attrs.Bool(res, r.Name, "private", false) || attrs.Bool(res, r.Name, "external", false) {
			continue
		}
		prefix := attrs.String(res, r.Name, "psiClassPrefix", cfg.PsiClassPrefix)
		suffix := attrs.String(res, r.Name, "psiImplClassSuffix", cfg.PsiImplClassSuffix)
		ifaceName := names.PsiInterfaceName(r.Name, prefix)
		implName := names.PsiImplName(r.Name, prefix, suffix)

		ifaceBuf, ifaceN, err := openCounting(w, ifaceName)
		if err != nil {
			return err
		}
		implBuf, implN, err := openCounting(w, implName)
		if err != nil {
			return err
		}
		emitFileHeader(ifaceBuf, header)
		emitFileHeader(implBuf, header)

		psi.Emit(ifaceBuf, implBuf, r, res, helper, cfg)

		if err := ifaceBuf.Close(); err != nil {
			return &gerrors.IOError{Path: ifaceName, Err: err}
		}
		if err := implBuf.Close(); err != nil {
			return &gerrors.IOError{Path: implName, Err: err}
		}
		report.Files = append(report.Files, FileReport{Unit: ifaceName, Bytes: *ifaceN})
		report.Files = append(report.Files, FileReport{Unit: implName, Bytes: *implN})
	}
	return nil
}
