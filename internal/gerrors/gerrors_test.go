package gerrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type stringerKind string

func (k stringerKind) String() string { return string(k) }

func TestIOErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &IOError{Path: "ExprParser.java", Err: cause}

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Errorf("expected non-empty Error() message")
	}
}

func TestHeaderPathErrorUnwraps(t *testing.T) {
	cause := errors.New("no such file")
	err := &HeaderPathError{Path: "/missing/header.txt", Err: cause}

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Errorf("expected non-empty Error() message")
	}
}

func TestUnexpectedExpressionErrorMessage(t *testing.T) {
	err := &UnexpectedExpressionError{Kind: stringerKind("Sequence"), Where: "addExpr"}
	msg := err.Error()

	if msg == "" {
		t.Errorf("expected non-empty Error() message")
	}
	want := fmt.Sprintf("unexpected expression variant %s in %s", "Sequence", "addExpr")
	if !strings.Contains(msg, want) {
		t.Errorf("Error() = %q, want it to contain %q", msg, want)
	}
}
