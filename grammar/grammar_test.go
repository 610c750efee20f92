package grammar

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// writeU32 / writeI32 are tiny helpers to hand-build binary grammar fixtures
// the way the real grammar compiler would emit them.
func writeU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func writeI32(buf *bytes.Buffer, v int32)  { binary.Write(buf, binary.LittleEndian, v) }

func signature(buf *bytes.Buffer) {
	sig := make([]byte, signatureLen)
	copy(sig, signaturePrefix)
	buf.Write(sig)
}

// buildS1Grammar assembles the S1 seed grammar from the spec:
//
//	S0 → S; S → Y | S C; Y → 1 2 A; C → 3 S; A → 4 | ε
//
// Nonterminal ids: S0=-1, S=-2, Y=-3, C=-4, A=-5 (dense, in file order).
func buildS1Grammar(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	signature(&buf)
	writeU32(&buf, 4) // terminals 1..4
	writeU32(&buf, 5) // nonterminals
	writeI32(&buf, -1) // root = S0

	// S0 → S
	writeU32(&buf, 1)
	writeU32(&buf, 0) // id
	writeU32(&buf, 0) // priority
	writeU32(&buf, 1) // length
	writeI32(&buf, -2) // S

	// S → Y | S C
	writeU32(&buf, 2)
	writeU32(&buf, 1)
	writeU32(&buf, 0)
	writeU32(&buf, 1)
	writeI32(&buf, -3) // Y
	writeU32(&buf, 2)
	writeU32(&buf, 0)
	writeU32(&buf, 2)
	writeI32(&buf, -2) // S
	writeI32(&buf, -4) // C

	// Y → 1 2 A
	writeU32(&buf, 1)
	writeU32(&buf, 3)
	writeU32(&buf, 0)
	writeU32(&buf, 3)
	writeI32(&buf, 1)
	writeI32(&buf, 2)
	writeI32(&buf, -5) // A

	// C → 3 S
	writeU32(&buf, 1)
	writeU32(&buf, 4)
	writeU32(&buf, 0)
	writeU32(&buf, 2)
	writeI32(&buf, 3)
	writeI32(&buf, -2)

	// A → 4 | ε
	writeU32(&buf, 2)
	writeU32(&buf, 5)
	writeU32(&buf, 0)
	writeU32(&buf, 1)
	writeI32(&buf, 4)
	writeU32(&buf, 6)
	writeU32(&buf, 0)
	writeU32(&buf, 0) // epsilon: length 0

	return &buf
}

func redirect(t *testing.T) func() {
	gtrace.SyntaxTracer = gotestingadapter.New()
	gtrace.SyntaxTracer.SetTraceLevel(tracing.LevelDebug)
	return gotestingadapter.RedirectTracing(t)
}

func TestLoadS1Grammar(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	g, err := Load(buildS1Grammar(t))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if g.NumTerminals() != 4 {
		t.Errorf("expected 4 terminals, got %d", g.NumTerminals())
	}
	if g.NumNonterminals() != 5 {
		t.Errorf("expected 5 nonterminals, got %d", g.NumNonterminals())
	}
	if g.Root() != -1 {
		t.Errorf("expected root -1, got %d", g.Root())
	}
	if g.NumProductions() != 7 {
		t.Errorf("expected 7 productions total (1+2+1+1+2), got %d", g.NumProductions())
	}
	s := g.Nonterminal(-2)
	if s == nil || s.NumProductions() != 2 {
		t.Fatalf("expected nonterminal S(-2) with 2 productions, got %v", s)
	}
	a := g.Nonterminal(-5)
	if a == nil || a.NumProductions() != 2 {
		t.Fatalf("expected nonterminal A(-5) with 2 productions, got %v", a)
	}
	// one of A's productions must be epsilon (length 0)
	foundEpsilon := false
	for p := a.Productions(); p != nil; p = p.Next() {
		if p.Len() == 0 {
			foundEpsilon = true
		}
	}
	if !foundEpsilon {
		t.Errorf("expected an epsilon production for A")
	}
}

func TestLoadEmptyGrammar(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	var buf bytes.Buffer
	signature(&buf)
	writeU32(&buf, 0) // terminals
	writeU32(&buf, 0) // nonterminals: empty grammar, no more bytes required
	g, err := Load(&buf)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if g.NumNonterminals() != 0 || g.NumTerminals() != 0 {
		t.Errorf("expected a fully empty grammar")
	}
}

// TestLoadBadSignature is seed case S6 from spec.md §8.
func TestLoadBadSignature(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	var buf bytes.Buffer
	sig := make([]byte, signatureLen)
	copy(sig, "Xyz")
	buf.Write(sig)
	writeU32(&buf, 4)
	writeU32(&buf, 5)
	g, err := Load(&buf)
	if err == nil {
		t.Fatalf("expected an error for a bad signature")
	}
	if g.NumNonterminals() != 0 || g.NumTerminals() != 0 {
		t.Errorf("expected grammar to be reset to empty on load failure, got %+v", g)
	}
}

func TestLoadOversizedProduction(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	var buf bytes.Buffer
	signature(&buf)
	writeU32(&buf, 1)
	writeU32(&buf, 1)
	writeI32(&buf, -1)
	writeU32(&buf, 1)   // 1 production
	writeU32(&buf, 0)   // id
	writeU32(&buf, 0)   // priority
	writeU32(&buf, 257) // length: over the limit
	g, err := Load(&buf)
	if err == nil {
		t.Fatalf("expected an error for an oversized production")
	}
	if g.NumNonterminals() != 0 {
		t.Errorf("expected grammar reset to empty, got %+v", g)
	}
}

func TestLoadShortRead(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	var buf bytes.Buffer
	signature(&buf)
	writeU32(&buf, 4) // terminals, then nothing else
	_, err := Load(&buf)
	if err == nil {
		t.Fatalf("expected an error for a short read")
	}
}

func TestNonterminalLookupMiss(t *testing.T) {
	g := Empty()
	if g.Nonterminal(-1) != nil {
		t.Errorf("expected nil lookup on empty grammar")
	}
	if g.Name(-1) != "" {
		t.Errorf("expected empty name on empty grammar")
	}
}
