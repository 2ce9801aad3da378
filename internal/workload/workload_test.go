package workload

import (
	"context"
	"testing"
)

func TestLookup(t *testing.T) {
	w, err := Lookup("none")
	if err != nil {
		t.Fatalf("Lookup(none): %v", err)
	}
	if w.Name() != "none" {
		t.Errorf("Name = %q", w.Name())
	}

	w, err = Lookup(" Stress ")
	if err != nil {
		t.Fatalf("Lookup(stress): %v", err)
	}
	if w.Name() != "stress" {
		t.Errorf("Name = %q", w.Name())
	}

	if _, err := Lookup("tornado"); err == nil {
		t.Error("Lookup(tornado) expected error")
	}
}

func TestNoneIsNoOp(t *testing.T) {
	ctx := context.Background()
	w := None{}
	if err := w.Enter(ctx); err != nil {
		t.Errorf("Enter: %v", err)
	}
	if err := w.Exit(ctx); err != nil {
		t.Errorf("Exit: %v", err)
	}
}

func TestStressExitWithoutEnter(t *testing.T) {
	s := NewStress()
	if err := s.Exit(context.Background()); err != nil {
		t.Errorf("Exit without Enter: %v", err)
	}
}
