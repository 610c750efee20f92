/*
Package grammar implements the grammar model for the Earley–Scott parser:
nonterminals, productions, and a loader for the compiled binary grammar
format produced by an external grammar compiler.

Nonterminals are addressed by negative integer ids (−1, −2, …), terminals by
positive integers starting at 1. Each nonterminal owns an ordered singly
linked list of productions (right-hand sides); a production's symbol array
is immutable once read from the binary file.

The binary grammar file this package loads is not a general-purpose format:
grammar-text parsing and terminal/token construction are handled upstream by
a grammar compiler external to this module (see the package-level Non-goals
in the module's design notes). This package only random-accesses an already
compiled grammar and loads it from the fixed binary layout below.

Binary layout (little-endian throughout):

	[16]byte  signature, beginning with "Reynir " (space included)
	uint32    T  number of terminals
	uint32    N  number of nonterminals (0 => empty grammar, stop here)
	int32     root nonterminal id (negative)
	for id := -1; id >= -N; id-- {
	    uint32 P            number of productions for this nonterminal
	    repeat P times {
	        uint32 id       production id
	        uint32 priority
	        uint32 L        production length, L <= 256
	        [L]int32 symbols  (negative = nonterminal, positive = terminal)
	    }
	}

Productions are prepended to their nonterminal's list as they are read, so
the in-memory order is the reverse of on-disk order. This is immaterial for
parsing correctness but kept deterministic for test reproducibility.

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package grammar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'eparser.grammar'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.grammar")
}

// signaturePrefix is the mandatory prefix of the 16-byte file signature.
// The remainder of the 16 bytes is reserved and not validated.
const signaturePrefix = "Reynir "

const signatureLen = 16

// MaxProductionLength is the hard limit on symbols in a single production's
// right-hand side. Grammar files exceeding it are rejected at load time.
const MaxProductionLength = 256

// Symbol is a signed grammar-symbol reference: negative values identify a
// nonterminal by id, positive values identify a terminal by id, and zero
// (only ever seen past the end of a production) is the dot-at-end sentinel.
type Symbol int32

// IsNonterminal reports whether s refers to a nonterminal.
func (s Symbol) IsNonterminal() bool { return s < 0 }

// IsTerminal reports whether s refers to a terminal.
func (s Symbol) IsTerminal() bool { return s > 0 }

// Production is one right-hand side alternative of a nonterminal.
// Indexing past the end of Symbols yields the sentinel value 0, used
// throughout the parser to mean "dot is at the end of this production".
type Production struct {
	ID       uint32
	Priority uint32
	LHS      Symbol // the owning nonterminal's id (negative)
	Symbols  []Symbol
	next     *Production // next production of the same nonterminal
}

// At returns the symbol at index i of the production's right-hand side, or
// the sentinel value 0 if i is at or past the end (the "dot at end" marker).
func (p *Production) At(i int) Symbol {
	if p == nil || i < 0 || i >= len(p.Symbols) {
		return 0
	}
	return p.Symbols[i]
}

// Len returns the number of symbols in the production's right-hand side.
// A Len of 0 denotes an epsilon production.
func (p *Production) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Symbols)
}

// Next returns the next production of the owning nonterminal, or nil.
func (p *Production) Next() *Production {
	if p == nil {
		return nil
	}
	return p.next
}

// Nonterminal owns an ordered singly linked list of productions.
type Nonterminal struct {
	ID    Symbol // negative
	Name  string // display name, may be empty if the loader has none
	head  *Production
	ntail int // number of productions, for diagnostics
}

// Productions returns the head of this nonterminal's production list.
// Walk it with Production.Next until nil.
func (nt *Nonterminal) Productions() *Production {
	if nt == nil {
		return nil
	}
	return nt.head
}

// NumProductions returns the number of productions owned by nt.
func (nt *Nonterminal) NumProductions() int {
	if nt == nil {
		return 0
	}
	return nt.ntail
}

func (nt *Nonterminal) prepend(p *Production) {
	p.next = nt.head
	nt.head = p
	nt.ntail++
}

// Grammar is the fixed grammar model: a dense range of nonterminals and
// terminals plus a designated root nonterminal. Grammar is immutable once
// loaded and safe to share read-only across goroutines (spec.md §5).
type Grammar struct {
	numTerminals    uint32
	numNonterminals uint32
	numProductions  uint32
	root            Symbol
	nonterminals    map[Symbol]*Nonterminal // keyed by negative id
}

// Empty returns a zero-value, empty Grammar — no terminals, no
// nonterminals, root id 0. Used both as the starting point before a
// successful load and as the reset target after a failed one.
func Empty() *Grammar {
	return &Grammar{nonterminals: make(map[Symbol]*Nonterminal)}
}

// NumTerminals returns the number of terminals T in the grammar.
func (g *Grammar) NumTerminals() uint32 { return g.numTerminals }

// NumNonterminals returns the number of nonterminals N in the grammar.
func (g *Grammar) NumNonterminals() uint32 { return g.numNonterminals }

// NumProductions returns the total number of productions across every
// nonterminal in the grammar, for the allocation-balance report (spec.md
// §4.6, §7).
func (g *Grammar) NumProductions() uint32 { return g.numProductions }

// Root returns the root nonterminal's id (negative), or 0 for an empty
// grammar.
func (g *Grammar) Root() Symbol { return g.root }

// Nonterminal looks up a nonterminal by its (negative) id. Returns nil if
// id is out of the dense −1…−N range.
func (g *Grammar) Nonterminal(id Symbol) *Nonterminal {
	if g == nil {
		return nil
	}
	return g.nonterminals[id]
}

// Name returns the display name of the nonterminal with the given id, or
// the empty string if unknown.
func (g *Grammar) Name(id Symbol) string {
	if nt := g.Nonterminal(id); nt != nil {
		return nt.Name
	}
	return ""
}

// IsValidTerminal reports whether t lies in the dense 1…T terminal range.
func (g *Grammar) IsValidTerminal(t Symbol) bool {
	return t > 0 && uint32(t) <= g.numTerminals
}

// LoadFile reads a compiled binary grammar from path, per the layout
// documented in the package comment. On any failure — short read, bad
// signature, oversized production — it returns a non-nil error and the
// returned *Grammar is reset to Empty(), matching spec.md §4.1's "loader
// must reset to empty on failure" rule.
func LoadFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return Empty(), fmt.Errorf("grammar: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a compiled binary grammar from r. See LoadFile and the package
// comment for the exact layout.
func Load(r io.Reader) (*Grammar, error) {
	g, err := load(r)
	if err != nil {
		tracer().Errorf("grammar load failed: %s", err.Error())
		return Empty(), err
	}
	tracer().Infof("loaded grammar: %d terminals, %d nonterminals, root=%d",
		g.numTerminals, g.numNonterminals, g.root)
	return g, nil
}

func load(r io.Reader) (*Grammar, error) {
	var sig [signatureLen]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, fmt.Errorf("grammar: reading signature: %w", err)
	}
	if !bytes.HasPrefix(sig[:], []byte(signaturePrefix)) {
		return nil, fmt.Errorf("grammar: bad signature %q, want prefix %q", sig[:], signaturePrefix)
	}
	var t, n uint32
	if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
		return nil, fmt.Errorf("grammar: reading terminal count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("grammar: reading nonterminal count: %w", err)
	}
	g := &Grammar{numTerminals: t, nonterminals: make(map[Symbol]*Nonterminal, n)}
	if n == 0 {
		return g, nil // empty grammar, nothing further to read
	}
	var root int32
	if err := binary.Read(r, binary.LittleEndian, &root); err != nil {
		return nil, fmt.Errorf("grammar: reading root id: %w", err)
	}
	if root >= 0 {
		return nil, fmt.Errorf("grammar: root nonterminal id %d is not negative", root)
	}
	g.root = Symbol(root)
	g.numNonterminals = n
	for i := uint32(0); i < n; i++ {
		id := Symbol(-1 - int32(i))
		nt := &Nonterminal{ID: id}
		g.nonterminals[id] = nt
		var numProd uint32
		if err := binary.Read(r, binary.LittleEndian, &numProd); err != nil {
			return nil, fmt.Errorf("grammar: reading production count for %d: %w", id, err)
		}
		for p := uint32(0); p < numProd; p++ {
			prod, err := readProduction(r, id)
			if err != nil {
				return nil, fmt.Errorf("grammar: nonterminal %d, production %d: %w", id, p, err)
			}
			nt.prepend(prod)
			g.numProductions++
		}
	}
	return g, nil
}

func readProduction(r io.Reader, lhs Symbol) (*Production, error) {
	var id, priority, length uint32
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return nil, fmt.Errorf("reading id: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &priority); err != nil {
		return nil, fmt.Errorf("reading priority: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("reading length: %w", err)
	}
	if length > MaxProductionLength {
		return nil, fmt.Errorf("production length %d exceeds maximum %d", length, MaxProductionLength)
	}
	syms := make([]Symbol, length)
	for i := uint32(0); i < length; i++ {
		var s int32
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			return nil, fmt.Errorf("reading symbol %d: %w", i, err)
		}
		syms[i] = Symbol(s)
	}
	return &Production{ID: id, Priority: priority, LHS: lhs, Symbols: syms}, nil
}

// EachNonterminal calls fn once per nonterminal, in id order −1, −2, …, −N.
// Useful for diagnostics and for building the per-nonterminal "predicted"
// flag array (spec.md §4.3).
func (g *Grammar) EachNonterminal(fn func(*Nonterminal)) {
	if g == nil {
		return
	}
	for i := uint32(0); i < g.numNonterminals; i++ {
		id := Symbol(-1 - int32(i))
		if nt := g.nonterminals[id]; nt != nil {
			fn(nt)
		}
	}
}
