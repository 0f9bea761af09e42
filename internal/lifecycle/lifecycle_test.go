package lifecycle

import "testing"

func TestCASOnlyTransitionsFromExpectedState(t *testing.T) {
	t.Parallel()
	c := NewCell("dev-1")
	if c.Load() != New {
		t.Fatalf("expected initial state New, got %v", c.Load())
	}
	if c.CAS(Ready, Starting) {
		t.Fatal("CAS should fail when current state does not match 'from'")
	}
	if !c.CAS(New, Initializing) {
		t.Fatal("CAS should succeed from the correct 'from' state")
	}
	if c.Load() != Initializing {
		t.Fatalf("expected Initializing, got %v", c.Load())
	}
}

func TestStoreAlwaysTransitions(t *testing.T) {
	t.Parallel()
	c := NewCell("dev-2")
	c.Store(Failed)
	if c.Load() != Failed {
		t.Fatalf("expected Failed, got %v", c.Load())
	}
}
