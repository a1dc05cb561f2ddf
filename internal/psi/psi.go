// Package psi emits the syntax-tree (PSI) interface and implementation
// pair for each public rule: a typed accessor surface over the raw
// marker tree the expression compiler builds. The cardinality/accessor
// analysis itself is an external collaborator (GraphHelper below);
// this package only renders what the helper reports.
package psi

import (
	"fmt"
	"strings"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/grammarast"
	"parsergen/internal/names"
)

// Cardinality classifies how many times a child can appear under its
// parent rule.
type Cardinality int

const (
	Required Cardinality = iota
	Optional
	AnyNumber
	AtLeastOne
)

// Many reports whether the cardinality produces a List<> accessor.
func (c Cardinality) Many() bool { return c == AnyNumber || c == AtLeastOne }

// Nullable reports whether the accessor is annotated @Nullable rather
// than @NotNull. Only a singular optional child is nullable: an empty
// list is still a (non-null) empty list.
func (c Cardinality) Nullable() bool { return c == Optional }

// Child describes one accessor-worthy child of a rule, as reported by
// the graph helper.
type Child struct {
	Name        string // the referenced rule or token name
	IsToken     bool
	Cardinality Cardinality
}

// GraphHelper is the cardinality/accessor analyzer, considered an
// external collaborator by spec section 1; internal/psi only consumes
// it. FromGrammar in this package provides a structural, good-enough-
// for-generation default so the rest of the pipeline has something
// concrete to run against.
type GraphHelper interface {
	Children(ruleName string) []Child
}

// Config mirrors the root/rule PSI-emission attributes (spec section
// 3): generatePsi, psiPackage, psiImplPackage, psiImplClassSuffix,
// psiClassPrefix, methodRenames.
type Config struct {
	PsiPackage         string
	PsiImplPackage     string
	PsiImplClassSuffix string
	PsiClassPrefix     string
	MethodRenames      map[string]string
}

// Emit writes rule's PSI interface into ifaceBuf and its implementation
// into implBuf. Callers should skip private rules entirely (spec: "a
// private rule produces no node and no PSI class").
func Emit(ifaceBuf, implBuf *emit.Buffer, rule *grammarast.Rule, res *attrs.Resolver, helper GraphHelper, cfg Config) {
	ifaceName := names.PsiInterfaceName(rule.Name, cfg.PsiClassPrefix)
	implName := names.PsiImplName(rule.Name, cfg.PsiClassPrefix, cfg.PsiImplClassSuffix)

	superIface := "PsiElement"
	if super := attrs.String(res, rule.Name, "extends", ""); super != "" {
		superIface = names.PsiInterfaceName(super, cfg.PsiClassPrefix)
	}
	var extra []string
	if implementsAttr := attrs.String(res, rule.Name, "implements", ""); implementsAttr != "" {
		for _, s := range strings.Split(implementsAttr, ",") {
			if s = strings.TrimSpace(s); s != "" {
				extra = append(extra, s)
			}
		}
	}

	children := filterAmbiguous(helper.Children(rule.Name))

	emitInterface(ifaceBuf, cfg.PsiPackage, ifaceName, superIface, extra, children, cfg)

	mixin := attrs.String(res, rule.Name, "mixin", "")
	implBase := "ASTWrapperPsiElement"
	if mixin != "" {
		implBase = mixin
	}
	emitImpl(implBuf, cfg.PsiImplPackage, implName, ifaceName, implBase, children, cfg)
}

func emitInterface(buf *emit.Buffer, pkg, ifaceName, superIface string, extra []string, children []Child, cfg Config) {
	buf.Emit("package " + pkg + ";")
	buf.EmitBlank()
	decl := "public interface " + ifaceName + " extends " + superIface
	for _, e := range extra {
		decl += ", " + e
	}
	decl += " {"
	buf.Emit(decl)

	for _, ch := range children {
		emitAccessorSignature(buf, ch, cfg, true)
	}
	buf.Emit("}")
}

func emitImpl(buf *emit.Buffer, pkg, implName, ifaceName, base string, children []Child, cfg Config) {
	buf.Emit("package " + pkg + ";")
	buf.EmitBlank()
	buf.Emit("public class " + implName + " extends " + base + " implements " + ifaceName + " {")
	buf.Emit("public " + implName + "(ASTNode node) {")
	buf.Emit("super(node);")
	buf.Emit("}")

	for _, ch := range children {
		buf.EmitBlank()
		emitAccessorSignature(buf, ch, cfg, false)
		emitAccessorBody(buf, ch, cfg)
		buf.Emit("}")
	}
	buf.Emit("}")
}

func emitAccessorSignature(buf *emit.Buffer, ch Child, cfg Config, interfaceOnly bool) {
	name := names.GetterName(ch.Name, cfg.MethodRenames, ch.Cardinality.Many())
	ret := accessorReturnType(ch, cfg)

	annotation := "@NotNull"
	if ch.Cardinality.Nullable() {
		annotation = "@Nullable"
	}

	sig := annotation + " " + ret + " " + name + "()"
	if interfaceOnly {
		buf.Emit(sig + ";")
		return
	}
	buf.Emit("public " + sig + " {")
}

func accessorReturnType(ch Child, cfg Config) string {
	single := "PsiElement"
	if !ch.IsToken {
		single = names.PsiInterfaceName(ch.Name, cfg.PsiClassPrefix)
	}
	if ch.Cardinality.Many() {
		return "List<" + single + ">"
	}
	return single
}

func emitAccessorBody(buf *emit.Buffer, ch Child, cfg Config) {
	if ch.IsToken {
		if ch.Cardinality.Many() {
			buf.Emit("List<PsiElement> result = new ArrayList<>();")
			buf.Emit(fmt.Sprintf("for (ASTNode node : getNode().getChildren(TokenSet.create(%s))) {", ch.Name))
			buf.Emit("result.add(node.getPsi());")
			buf.Emit("}")
			buf.Emit("return result;")
			return
		}
		buf.Emit(fmt.Sprintf("ASTNode node = getNode().findChildByType(%s);", ch.Name))
		buf.Emit("return node == null ? null : node.getPsi();")
		return
	}
	iface := names.PsiInterfaceName(ch.Name, cfg.PsiClassPrefix)
	if ch.Cardinality.Many() {
		buf.Emit(fmt.Sprintf("return getChildrenOfTypeAsList(this, %s.class);", iface))
		return
	}
	buf.Emit(fmt.Sprintf("return getChildOfType(this, %s.class);", iface))
}

// filterAmbiguous drops children whose reference name mixes case in a
// way that doesn't match either naming convention in use throughout
// this system: all-caps-with-underscores for tokens, or
// lowercase/camelCase starting with a lowercase letter for rules
// (spec section 4.7: "mixed-case references are omitted to avoid
// ambiguous mapping").
func filterAmbiguous(children []Child) []Child {
	out := make([]Child, 0, len(children))
	for _, ch := range children {
		if isUnambiguousName(ch.Name) {
			out = append(out, ch)
		}
	}
	return out
}

func isUnambiguousName(name string) bool {
	if name == "" {
		return false
	}
	allUpper := true
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			allUpper = false
			break
		}
	}
	if allUpper {
		return true
	}
	first := rune(name[0])
	return first >= 'a' && first <= 'z'
}
