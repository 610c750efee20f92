package state

import (
	"testing"

	"github.com/npillmayer/eparser/grammar"
)

func TestAtDotAndComplete(t *testing.T) {
	p := &grammar.Production{ID: 1, Symbols: []grammar.Symbol{10, 20}}
	var s State
	s.Init(-1, p, 0, 0, nil)
	if s.AtDot() != 10 {
		t.Errorf("expected symbol at dot 0 to be 10, got %d", s.AtDot())
	}
	if s.Complete() {
		t.Errorf("expected a state with symbols remaining to not be complete")
	}
	s.Init(-1, p, 2, 0, nil)
	if s.AtDot() != 0 {
		t.Errorf("expected AtDot at the end of the production to be 0, got %d", s.AtDot())
	}
	if !s.Complete() {
		t.Errorf("expected a state with the dot at the end to be complete")
	}
}

func TestAtDotOnNilState(t *testing.T) {
	var s *State
	if s.AtDot() != 0 {
		t.Errorf("expected AtDot on a nil state to return 0")
	}
}

func TestEqual(t *testing.T) {
	p := &grammar.Production{ID: 1, Symbols: []grammar.Symbol{10}}
	var a, b State
	a.Init(-1, p, 0, 0, nil)
	b.Init(-1, p, 0, 0, nil)
	if !a.Equal(&b) {
		t.Errorf("expected two states with identical fields to be Equal")
	}
	b.Init(-1, p, 1, 0, nil)
	if a.Equal(&b) {
		t.Errorf("expected states differing in Dot to not be Equal")
	}
	if a.Equal(nil) || (*State)(nil).Equal(&a) {
		t.Errorf("expected a nil comparison to never equal a non-nil state")
	}
	var n *State
	if !n.Equal(nil) {
		t.Errorf("expected two nil states to be Equal")
	}
}

func TestHashStableAndSensitiveToFields(t *testing.T) {
	p := &grammar.Production{ID: 1, Symbols: []grammar.Symbol{10}}
	var a, b State
	a.Init(-1, p, 0, 0, nil)
	b.Init(-1, p, 0, 0, nil)
	if a.Hash() != b.Hash() {
		t.Errorf("expected equal states to hash identically")
	}
	b.Init(-2, p, 0, 0, nil)
	if a.Hash() == b.Hash() {
		t.Errorf("expected states differing in NT to (almost certainly) hash differently")
	}
}

func TestResetClearsToZeroValue(t *testing.T) {
	p := &grammar.Production{ID: 1, Symbols: []grammar.Symbol{10}}
	var s State
	s.Init(-1, p, 1, 2, nil)
	s.SetColNext(&State{})
	s.Reset()
	if s.NT != 0 || s.Prod != nil || s.Dot != 0 || s.Start != 0 || s.Node != nil || s.ColNext() != nil {
		t.Errorf("expected Reset to clear every field, got %+v", s)
	}
}

func TestInitReinitializesLinks(t *testing.T) {
	p := &grammar.Production{ID: 1, Symbols: []grammar.Symbol{10}}
	var s State
	s.Init(-1, p, 0, 0, nil)
	s.SetColNext(&State{})
	s.SetNTNext(&State{})
	s.SetBucketNext(&State{})
	s.Init(-2, p, 1, 3, nil)
	if s.ColNext() != nil || s.NTNext() != nil || s.BucketNext() != nil {
		t.Errorf("expected Init to clear the intrusive links of a reused state")
	}
	if s.NT != -2 || s.Dot != 1 || s.Start != 3 {
		t.Errorf("expected Init to set the new field values, got %+v", s)
	}
}

func TestString(t *testing.T) {
	var n *State
	if n.String() != "<nil state>" {
		t.Errorf("expected nil state to render as <nil state>, got %q", n.String())
	}
	p := &grammar.Production{ID: 7, Symbols: []grammar.Symbol{10}}
	var s State
	s.Init(-1, p, 0, 5, nil)
	if got := s.String(); got == "" {
		t.Errorf("expected a non-empty rendering for a live state")
	}
}
