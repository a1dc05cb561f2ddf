package emit

// PublicRule describes one public, non-external rule for holder
// emission purposes.
type PublicRule struct {
	RuleName     string
	ElementType  string
	PsiInterface string // only needed when GeneratePsi is set
	PsiImplClass string
}

// TokenConstant describes one simple-token constant; Alias is the name
// resolved through the root attribute map (empty if the token name is
// used as-is).
type TokenConstant struct {
	TokenName string
	Alias     string
}

// HolderConfig configures EmitHolder; it corresponds to the root
// elementTypeHolderClass/generatePsi/psi* attributes (spec section 3).
type HolderConfig struct {
	PackageName string
	ClassName   string
	GeneratePsi bool
}

// EmitHolder writes the element-type holder unit: one constant per
// distinct public rule element type, one per simple token, and — when
// GeneratePsi is set — a factory switch ending in an assertion for
// unknown types (spec section 4.6). rules and tokens are taken as given
// (already deduplicated/ordered by the caller, per spec invariants 4-5
// and the insertion-order guarantee in the Design Notes).
func EmitHolder(b *Buffer, cfg HolderConfig, rules []PublicRule, tokens []TokenConstant) {
	b.Emit("package " + cfg.PackageName + ";")
	b.EmitBlank()
	b.Emit("public interface " + cfg.ClassName + " {")

	for _, r := range rules {
		b.Emit("IElementType " + r.ElementType + " = new GrammarElementType(\"" + r.ElementType + "\");")
	}
	if len(rules) > 0 && len(tokens) > 0 {
		b.EmitBlank()
	}
	for _, tok := range tokens {
		name := tok.TokenName
		if tok.Alias != "" {
			name = tok.Alias
		}
		b.Emit("IElementType " + tok.TokenName + " = new GrammarTokenType(\"" + name + "\");")
	}

	if cfg.GeneratePsi {
		b.EmitBlank()
		b.Emit("class Factory {")
		b.Emit("public static PsiElement createElement(ASTNode node) {")
		b.Emit("IElementType type = node.getElementType();")
		first := true
		for _, r := range rules {
			cond := "if (type == " + r.ElementType + ") {"
			if !first {
				cond = "else " + cond
			}
			first = false
			b.Emit(cond)
			b.Emit("return new " + r.PsiImplClass + "(node);")
			b.Emit("}")
		}
		b.Emit("throw new AssertionError(\"Unknown element type: \" + type);")
		b.Emit("}")
		b.Emit("}")
	}

	b.Emit("}")
}
