package tokenset

import (
	"reflect"
	"testing"
)

func TestAddDeduplicatesAndPreservesFirstSeenOrder(t *testing.T) {
	s := New()
	s.Add("NUM_")
	s.Add("PLUS_")
	s.Add("NUM_")
	s.Add("MINUS_")

	want := []string{"NUM_", "PLUS_", "MINUS_"}
	if got := s.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
}

func TestEmptySetYieldsNoItems(t *testing.T) {
	s := New()
	if got := s.Items(); len(got) != 0 {
		t.Errorf("expected no items, got %v", got)
	}
}
