//go:build cgo

package capi

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/eparser/grammar"
)

func redirect(t *testing.T) func() {
	gtrace.SyntaxTracer = gotestingadapter.New()
	gtrace.SyntaxTracer.SetTraceLevel(tracing.LevelDebug)
	return gotestingadapter.RedirectTracing(t)
}

// writeSeedGrammarFile writes spec.md §8's S1 grammar to a temp file and
// returns its path: S0 → S; S → Y | S C; Y → 1 2 A; C → 3 S; A → 4 | ε.
func writeSeedGrammarFile(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	w32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	w32i := func(v int32) { binary.Write(&buf, binary.LittleEndian, v) }
	sig := make([]byte, 16)
	copy(sig, "Reynir ")
	buf.Write(sig)
	w32(4)
	w32(5)
	w32i(-1)

	w32(1) // S0 → S
	w32(0)
	w32(0)
	w32(1)
	w32i(-2)

	w32(2) // S → Y | S C
	w32(1)
	w32(0)
	w32(1)
	w32i(-3)
	w32(2)
	w32(0)
	w32(2)
	w32i(-2)
	w32i(-4)

	w32(1) // Y → 1 2 A
	w32(3)
	w32(0)
	w32(3)
	w32i(1)
	w32i(2)
	w32i(-5)

	w32(1) // C → 3 S
	w32(4)
	w32(0)
	w32(2)
	w32i(3)
	w32i(-2)

	w32(2) // A → 4 | ε
	w32(5)
	w32(0)
	w32(1)
	w32i(4)
	w32(6)
	w32(0)
	w32(0)

	f, err := os.CreateTemp(t.TempDir(), "grammar-*.bin")
	if err != nil {
		t.Fatalf("creating temp grammar file: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		t.Fatalf("writing temp grammar file: %v", err)
	}
	return f.Name()
}

func TestNewGrammarInvalidPath(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	h := NewGrammar("/no/such/file.bin")
	defer DestroyGrammar(h)
	if h != 0 {
		t.Fatalf("expected handle 0 when the grammar file cannot be loaded")
	}
}

func TestParseRoundTrip(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	hg := NewGrammar(writeSeedGrammarFile(t))
	defer DestroyGrammar(hg)
	hp := NewParser(hg, nil)
	defer DestroyParser(hp)
	if hp == 0 {
		t.Fatalf("expected a valid parser handle")
	}

	tokens := []uint32{1, 2, 3}
	hn, errTok := Parse(hp, 1, grammar.Symbol(-1), len(tokens), tokens)
	if hn == 0 {
		t.Fatalf("expected a successful parse, got errorToken=%d", errTok)
	}
	defer ReleaseForest(hn)

	if n := NumCombinations(hn); n != 1 {
		t.Errorf("expected 1 combination, got %d", n)
	}
	if s := DumpForest(hn); s == "" {
		t.Errorf("expected a non-empty forest dump")
	}
	if s := Report(hp); s == "" {
		t.Errorf("expected a non-empty report")
	}
}

func TestParseInvalidParserHandle(t *testing.T) {
	teardown := redirect(t)
	defer teardown()
	//
	hn, errTok := Parse(12345, 1, grammar.Symbol(-1), 1, []uint32{1})
	if hn != 0 || errTok != 0 {
		t.Errorf("expected a zero handle and errorToken for an invalid parser handle")
	}
}
