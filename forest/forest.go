/*
Package forest implements the Shared Packed Parse Forest (SPPF) node store
(spec.md §3, §4.2).

A Node is labelled (symbol, dot, production, i, j) — the grammar symbol
being derived, how far the dot has advanced into the production (or nil for
a fully reduced node), and the input span (i…j) it covers. A Node carries a
list of "families"; each family is a pair (pW, pV) of child node pointers
plus the production responsible for it. pW may be nil for the first symbol
consumed by a production; both may be nil for an epsilon derivation.
Ambiguity shows up as more than one family on the same Node — that sharing
is the "S" in SPPF.

This generalizes the teacher's split symbol-node/RHS-node/or-edge/and-edge
forest (package sppf in the teacher repo) into the flatter single-Node
model spec.md's label already implies: production+dot+span is the whole
identity of a node, so there is no need for a separate RHS-node layer.

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package forest

import (
	"fmt"
	"sync/atomic"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing"

	"github.com/npillmayer/eparser/grammar"
)

// tracer traces with key 'eparser.forest'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.forest")
}

// Label identifies a Node: a grammar symbol, how far a production has been
// recognized (Dot, Prod — both zero value for a terminal leaf or an
// unlabelled epsilon node), and the input span it covers.
type Label struct {
	Symbol grammar.Symbol
	Dot    int
	Prod   *grammar.Production // nil for a terminal leaf or a fully-generic node
	I, J   int
}

// Family is one (production, pW, pV) alternative contributing to a Node.
// pW is nil when the node derives from a single child (the first symbol
// consumed by a one-symbol production; for longer productions makeNode
// passes the first child through without a family); both are nil for an
// epsilon derivation.
type Family struct {
	Prod *grammar.Production
	W    *Node
	V    *Node
}

// Node is a labelled SPPF node with a deduplicated family list and a
// reference count. The parser builds a DAG of Nodes during a parse; the
// host holds exactly one external reference to the returned root and drops
// it via Release when the forest is no longer needed (spec.md §3, §6).
type Node struct {
	Label    Label
	families []Family
	refs     int32
}

// nodesCreated/nodesLive are process-wide allocation-balance counters
// (spec.md §4.6, §7, §8 property 3: "after the host releases the returned
// root, the allocation counters for Node ... return to zero"). They live
// here, not on NodeDict or Parser, because the event that must make
// nodesLive reach zero — a node's refcount dropping to zero inside
// Release — can happen long after the NodeDict or column that created the
// node has already moved on or been reset.
var (
	nodesCreated int64
	nodesLive    int64
)

// NodesCreated returns the total number of Nodes ever created in this
// process, for the allocation-balance report.
func NodesCreated() int64 { return atomic.LoadInt64(&nodesCreated) }

// NodesLive returns the net number of Nodes created but not yet reclaimed.
// This must return to zero once every outstanding root has been Released
// (spec.md §8 property 3).
func NodesLive() int64 { return atomic.LoadInt64(&nodesLive) }

// NewLeaf creates an unshared terminal (or otherwise atomic) node for the
// given label, with no families. Used for terminal nodes (spec.md §4.5
// step 4: "create a single terminal node with label (token_i, 0, nil,
// i, i+1) for sharing"). Epsilon nodes are not made here: the completer
// obtains them through NodeDict.LookupOrAdd.
func NewLeaf(label Label) *Node {
	atomic.AddInt64(&nodesCreated, 1)
	atomic.AddInt64(&nodesLive, 1)
	return &Node{Label: label, refs: 1}
}

// AddFamily adds a (production, pW, pV) triple to n, scanning the existing
// family list linearly and suppressing the insertion if an identical triple
// is already present (spec.md §4.2). Returns true if a new family was
// added.
func (n *Node) AddFamily(prod *grammar.Production, w, v *Node) bool {
	for _, f := range n.families {
		if f.Prod == prod && f.W == w && f.V == v {
			return false
		}
	}
	n.families = append(n.families, Family{Prod: prod, W: w, V: v})
	if w != nil {
		w.Acquire()
	}
	if v != nil {
		v.Acquire()
	}
	return true
}

// Families returns the node's family list. Callers must not mutate the
// returned slice.
func (n *Node) Families() []Family {
	if n == nil {
		return nil
	}
	return n.families
}

// Acquire increments n's reference count. Safe to call with n == nil (a
// no-op), matching the common pattern of conditionally-nil child pointers.
func (n *Node) Acquire() *Node {
	if n == nil {
		return nil
	}
	n.refs++
	return n
}

// Release decrements n's reference count, recursively releasing every
// child reachable from every family once the count reaches zero (spec.md
// §3 "Lifecycle": "the host must drop [the external reference] to tear
// down the DAG"). Safe to call with n == nil.
//
// Because the forest is a DAG (not a tree), a node may be released more
// than once along different paths before its count reaches zero; only the
// final Release actually recurses into the node's children.
func (n *Node) Release() {
	if n == nil {
		return
	}
	n.refs--
	if n.refs > 0 {
		return
	}
	atomic.AddInt64(&nodesLive, -1)
	for _, f := range n.families {
		f.W.Release()
		f.V.Release()
	}
	n.families = nil
}

// RefCount returns the current reference count, for diagnostics (spec.md
// §8 property 3, "reference balance").
func (n *Node) RefCount() int32 {
	if n == nil {
		return 0
	}
	return n.refs
}

// NumCombinations returns the number of distinct derivations represented by
// n: 1 for a leaf (no families), else the sum over families of the product
// of the children's combination counts (spec.md §4.2, §8 property 6).
func NumCombinations(n *Node) int {
	if n == nil {
		return 1
	}
	if len(n.families) == 0 {
		return 1
	}
	total := 0
	for _, f := range n.families {
		c := combOf(f.W) * combOf(f.V)
		total += c
	}
	return total
}

func combOf(n *Node) int {
	if n == nil {
		return 1
	}
	return NumCombinations(n)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("[%d·%d (%d…%d)]", n.Label.Symbol, n.Label.Dot, n.Label.I, n.Label.J)
}

// Signature returns a stable, human-debuggable hash of a node label, used
// only by the diagnostic dumper (not on the parser's hot path). Mirrors the
// teacher's use of cnf/structhash to key backlinks during parse-tree
// construction (lr/earley/earley.go's hash()).
func Signature(label Label) string {
	h, err := structhash.Hash(struct {
		Symbol grammar.Symbol
		Dot    int
		ProdID int64
		I, J   int
	}{
		Symbol: label.Symbol,
		Dot:    label.Dot,
		ProdID: prodID(label.Prod),
		I:      label.I,
		J:      label.J,
	}, 1)
	if err != nil {
		// structhash only errors on unsupported field types; our struct
		// above is plain data, so this would indicate a programming error.
		panic(err)
	}
	return h
}

func prodID(p *grammar.Production) int64 {
	if p == nil {
		return -1
	}
	return int64(p.ID)
}

// NodeDict is a transient per-column dictionary mapping Labels to existing
// Nodes, so that the same (symbol, dot, production, i, j) within one column
// always resolves to a single Node (spec.md §3, "enabling sharing — the S
// in SPPF"). It is reset between columns; lookup is linear, since within
// one column the dictionary is typically short (spec.md §4.2).
type NodeDict struct {
	entries []*Node
	lookups uint64 // cumulative LookupOrAdd calls, for the diagnostics report — not reset by Reset
}

// NewNodeDict returns an empty node dictionary.
func NewNodeDict() *NodeDict {
	return &NodeDict{}
}

// LookupOrAdd returns the existing Node for label if present, or creates,
// stores and returns a fresh one (spec.md §4.2). The returned Node always
// has refs >= 1. The caller owns that creation reference and must
// eventually Release it — the parser's own bookkeeping does this once, at
// the end of Parse, for every Node this call ever created (see
// earley.Parser.createdDict) — so forgetting to pair a LookupOrAdd against
// a later Release would permanently inflate NodesLive.
func (d *NodeDict) LookupOrAdd(label Label) (*Node, bool) {
	d.lookups++
	for _, n := range d.entries {
		if n.Label == label {
			return n, false
		}
	}
	n := &Node{Label: label, refs: 1}
	atomic.AddInt64(&nodesCreated, 1)
	atomic.AddInt64(&nodesLive, 1)
	d.entries = append(d.entries, n)
	tracer().Debugf("new SPPF node %s", n)
	return n, true
}

// Lookups returns the cumulative number of LookupOrAdd calls made against
// this dictionary over its whole lifetime (spec.md §4.6, §7 "dictionary
// lookup count"), including calls made before the most recent Reset.
func (d *NodeDict) Lookups() uint64 { return d.lookups }

// Reset clears the dictionary's lookup index for reuse in the next column.
// It does not touch any Node's reference count and does not clear the
// cumulative Lookups counter: a node created here may still be referenced
// by states waiting in earlier columns or by the eventual parse root, so
// only the index — not the nodes it pointed at — is column-scoped. The
// creation reference every LookupOrAdd call hands out is released exactly
// once, for every Node this dictionary has ever created across the whole
// parse, by earley.Parser at the end of Parse (see createdDict there) —
// that is what lets forest.NodesLive actually return to zero once the host
// releases the returned root (spec.md §8 property 3), rather than relying
// on the garbage collector to paper over an unreleased bookkeeping count.
func (d *NodeDict) Reset() {
	d.entries = d.entries[:0]
}

// All returns every node currently tracked by the dictionary, for
// diagnostics.
func (d *NodeDict) All() []*Node {
	return d.entries
}
