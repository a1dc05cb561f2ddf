package names

import "testing"

func TestElementTypeDefault(t *testing.T) {
	cases := map[string]string{
		"addExpr":  "ADD_EXPR",
		"add-expr": "ADD_EXPR",
		"add_expr": "ADD_EXPR",
		"root":     "ROOT",
	}
	for in, want := range cases {
		if got := ElementType(in, "", ""); got != want {
			t.Errorf("ElementType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestElementTypeExplicitOverride(t *testing.T) {
	if got := ElementType("addExpr", "PLUS_EXPRESSION", ""); got != "PLUS_EXPRESSION" {
		t.Errorf("expected explicit override to win, got %q", got)
	}
}

func TestElementTypePrefix(t *testing.T) {
	if got := ElementType("addExpr", "", "GR_"); got != "GR_ADD_EXPR" {
		t.Errorf("ElementType with prefix = %q, want GR_ADD_EXPR", got)
	}
}

func TestPsiInterfaceName(t *testing.T) {
	if got := PsiInterfaceName("add-expr", ""); got != "AddExpr" {
		t.Errorf("PsiInterfaceName = %q, want AddExpr", got)
	}
	if got := PsiInterfaceName("add-expr", "Gr"); got != "GrAddExpr" {
		t.Errorf("PsiInterfaceName with prefix = %q, want GrAddExpr", got)
	}
}

func TestPsiImplNameDefaultSuffix(t *testing.T) {
	if got := PsiImplName("add-expr", "", ""); got != "AddExprImpl" {
		t.Errorf("PsiImplName = %q, want AddExprImpl", got)
	}
}

func TestGetterNameSingular(t *testing.T) {
	if got := GetterName("mulExpr", nil, false); got != "getMulExpr" {
		t.Errorf("GetterName = %q, want getMulExpr", got)
	}
}

func TestGetterNameMany(t *testing.T) {
	if got := GetterName("item", nil, true); got != "getItemList" {
		t.Errorf("GetterName(many) = %q, want getItemList", got)
	}
}

func TestGetterNameRename(t *testing.T) {
	renames := map[string]string{"getItem": "getEntry"}
	if got := GetterName("item", renames, false); got != "getEntry" {
		t.Errorf("GetterName(renamed) = %q, want getEntry", got)
	}
	if got := GetterName("item", renames, true); got != "getEntryList" {
		t.Errorf("GetterName(renamed, many) = %q, want getEntryList", got)
	}
}
