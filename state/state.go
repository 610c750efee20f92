/*
Package state defines the Earley item ("state") that the column and earley
packages build columns and parse trees out of: (B, α·β, i, w) where B is the
left-hand nonterminal, the production plus a dot index describe α·β, i is
the start input position and w is the (possibly nil) SPPF node carrying the
derivation of α so far.

States are never constructed directly by clients of this module; they are
handed out and reclaimed by internal/arena, which owns their lifetime for
the duration of a single parse (spec.md §3, "Lifecycle").
*/
package state

import (
	"fmt"
	"unsafe"

	"github.com/npillmayer/eparser/forest"
	"github.com/npillmayer/eparser/grammar"
)

// State is the Earley item (B, α·β, i, w). Two states are equal iff all
// five fields — NT, Prod, Dot, Start, Node — are equal (spec.md §3).
type State struct {
	NT    grammar.Symbol     // B, the left-hand nonterminal
	Prod  *grammar.Production // the production α  (β is Prod minus the first Dot symbols)
	Dot   int                // index of the dot within Prod.Symbols
	Start int                // i, the input position this item started at
	Node  *forest.Node       // w, derivation of α so far (nil until non-trivial)

	// colNext threads all states within one column, in insertion order,
	// independent of which hash bucket they live in (used by debug dumps).
	colNext *State

	// ntNext threads states whose symbol-at-the-dot is the same
	// nonterminal, used by the completer to find "waiting" items in O(chain
	// length) instead of rescanning the whole column (spec.md §4.3
	// "per-nonterminal head pointer").
	ntNext *State

	// bucketNext threads same-bucket entries in a column's hash table, and
	// is owned entirely by package column.
	bucketNext *State
}

// AtDot returns the grammar symbol immediately after the dot, or the
// sentinel value 0 if the dot is at the end of the production.
func (s *State) AtDot() grammar.Symbol {
	if s == nil {
		return 0
	}
	return s.Prod.At(s.Dot)
}

// Complete reports whether the dot sits at the end of the production —
// item is of the form (B, α·, i, w).
func (s *State) Complete() bool {
	return s.AtDot() == 0
}

// ColNext returns the next state in this column's insertion-order thread.
func (s *State) ColNext() *State { return s.colNext }

// SetColNext is used by package column to link states in insertion order.
func (s *State) SetColNext(n *State) { s.colNext = n }

// NTNext returns the next state in the per-nonterminal completer chain.
func (s *State) NTNext() *State { return s.ntNext }

// SetNTNext is used by package column to link the per-nonterminal chain.
func (s *State) SetNTNext(n *State) { s.ntNext = n }

// BucketNext returns the next state in this state's hash bucket.
func (s *State) BucketNext() *State { return s.bucketNext }

// SetBucketNext is used by package column's hash table implementation.
func (s *State) SetBucketNext(n *State) { s.bucketNext = n }

// Equal reports whether two states are equal under the spec.md §3 notion
// of state identity: same nonterminal, production, dot, start and node.
func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.NT == o.NT && s.Prod == o.Prod && s.Dot == o.Dot &&
		s.Start == o.Start && s.Node == o.Node
}

// Hash combines the five identifying fields with simple bit mixing, for use
// as a column hash-table key (spec.md §4.3). It deliberately avoids
// reflection-based hashing (cf. structhash, used elsewhere in this module
// for low-frequency diagnostic paths) because this function sits on the hot
// path of every predictor/completer/scanner step.
func (s *State) Hash() uint64 {
	h := uint64(1469598103934665603) // FNV offset basis
	mix := func(x uint64) {
		h ^= x
		h *= 1099511628211 // FNV prime
	}
	mix(uint64(int64(s.NT)))
	mix(uint64(uintptr(prodPtrBits(s.Prod))))
	mix(uint64(s.Dot))
	mix(uint64(s.Start))
	mix(uint64(uintptr(nodePtrBits(s.Node))))
	return h
}

// Reset clears a state back to its zero value in place, used by the arena
// when discarding a just-allocated candidate (spec.md §4.4) so the backing
// memory can be reused without leaking a stale Node reference.
func (s *State) Reset() {
	*s = State{}
}

// Init (re-)initializes a state in place; used by the parser on each state
// it takes from the arena's Alloc and by the Scott "increment" optimisation (spec.md §4.5, §9) to mutate a scanned
// state into its advanced form without a fresh allocation.
func (s *State) Init(nt grammar.Symbol, prod *grammar.Production, dot, start int, node *forest.Node) {
	s.NT = nt
	s.Prod = prod
	s.Dot = dot
	s.Start = start
	s.Node = node
	s.colNext = nil
	s.ntNext = nil
	s.bucketNext = nil
}

func (s *State) String() string {
	if s == nil {
		return "<nil state>"
	}
	return fmt.Sprintf("(%d, %d·%d, %d)", s.NT, prodID(s.Prod), s.Dot, s.Start)
}

func prodID(p *grammar.Production) int64 {
	if p == nil {
		return -1
	}
	return int64(p.ID)
}

// prodPtrBits / nodePtrBits expose pointer identity for hash mixing without
// pulling either type's fields into this package's hot path.
func prodPtrBits(p *grammar.Production) unsafe.Pointer { return unsafe.Pointer(p) }
func nodePtrBits(n *forest.Node) unsafe.Pointer         { return unsafe.Pointer(n) }
