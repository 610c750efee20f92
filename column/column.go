/*
Package column implements the per-input-position Earley set (spec.md §4.3):
a hash-indexed collection of parser states, a per-nonterminal completer
chain, a predictor "already seen" flag per nonterminal, a tri-state
terminal match cache, and a round-robin enumeration cursor that observes
states inserted while a scan over the column is still in progress.

Linear column search is O(n²) per column in the worst case (spec.md §9);
this package exists specifically to keep the Earley–Scott cubic bound
practically reachable via hash-indexed deduplication, generalizing the
teacher's linear `findStateByItems` scan (lr/tables.go) into a real hash
table keyed by the five-tuple (nonterminal, production, dot, start, node).

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package column

import (
	"golang.org/x/exp/slices"

	"github.com/npillmayer/schuko/tracing"

	"github.com/npillmayer/eparser/grammar"
	"github.com/npillmayer/eparser/state"
)

// tracer traces with key 'eparser.column'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.column")
}

// NumBuckets is the fixed bucket count of a column's state hash table. It
// is prime, as spec.md §4.3 recommends, to spread hash values evenly
// regardless of how state pointers or dots happen to line up modulo small
// powers of two.
const NumBuckets = 1009

// MaxTokenID is the token id carried by the sentinel column at input
// position n (spec.md §3, §4.3): it never matches any terminal, which is
// what lets the main loop treat the sentinel column uniformly.
const MaxTokenID uint32 = ^uint32(0)

// match cache tri-state, packed one byte per terminal (spec.md §4.3, §9).
const (
	cacheUnset byte = iota
	cacheMatched
	cacheNotMatched
)

// MatchFunc is the host-supplied token/terminal matching callback (spec.md
// §6): given the opaque handle, the current token id and a terminal id, it
// reports whether the token matches that terminal. It is invoked at most
// once per (column, terminal) pair because of the match cache, and must be
// pure in its three inputs for the duration of one parse.
type MatchFunc func(handle int64, token uint32, terminal grammar.Symbol) bool

// bucket is one slot of the column's hash table: a singly linked chain of
// states (via state.BucketNext) plus an enumeration cursor that survives
// across calls to NextState, so states inserted mid-scan are still
// visited within the same enumeration pass (spec.md §4.3).
type bucket struct {
	head   *state.State
	tail   *state.State
	cursor *state.State // last state returned from this bucket, nil before the first
}

// Column is a single Earley set: the states active at one input position.
type Column struct {
	Pos     int    // input position this column represents, 0…n
	TokenID uint32 // the input token id at this position (MaxTokenID for the sentinel)

	g       *grammar.Grammar
	buckets [NumBuckets]bucket
	size    int

	colHead, colTail *state.State         // insertion-order thread over the whole column
	ntHeads          map[grammar.Symbol]*state.State // per-nonterminal completer chains
	predicted        map[grammar.Symbol]bool         // predictor "already seen" flags

	matcher    MatchFunc
	handle     int64
	matchCache []byte // nil unless StartParse has been called; len == T+1
	cacheCalls uint64 // diagnostic: number of matcher invocations (cache misses)

	enumBucket int // next bucket to inspect in NextState's round-robin scan
}

// New creates a column for input position pos with the given token id. g
// supplies the terminal count for sizing the match cache; matcher/handle
// are passed through from the parser (spec.md §6).
func New(pos int, tokenID uint32, g *grammar.Grammar, matcher MatchFunc, handle int64) *Column {
	return &Column{
		Pos:       pos,
		TokenID:   tokenID,
		g:         g,
		ntHeads:   make(map[grammar.Symbol]*state.State),
		predicted: make(map[grammar.Symbol]bool),
		matcher:   matcher,
		handle:    handle,
	}
}

// Size returns the number of distinct states currently in the column.
func (c *Column) Size() int { return c.size }

// AddState inserts s into the column's hash table, rejecting it (returning
// false, inserting nothing) if an equal state is already present (spec.md
// §3, §4.3 "addState rejects exact duplicates"). On success, if the symbol
// at the dot is a nonterminal, s is prepended to that nonterminal's
// completer chain.
func (c *Column) AddState(s *state.State) bool {
	h := s.Hash() % NumBuckets
	b := &c.buckets[h]
	for e := b.head; e != nil; e = e.BucketNext() {
		if e.Equal(s) {
			return false
		}
	}
	if b.head == nil {
		b.head = s
	} else {
		b.tail.SetBucketNext(s)
	}
	b.tail = s
	c.size++

	if c.colHead == nil {
		c.colHead = s
	} else {
		c.colTail.SetColNext(s)
	}
	c.colTail = s

	if at := s.AtDot(); at.IsNonterminal() {
		s.SetNTNext(c.ntHeads[at])
		c.ntHeads[at] = s
	}
	return true
}

// NextState returns the next not-yet-processed state in round-robin order
// over the hash buckets, starting from the bucket consulted last time
// (spec.md §4.3). Because each bucket keeps its own enumeration cursor,
// states added to a bucket already passed over in this sweep are picked up
// on the next time that bucket is visited, without restarting the whole
// scan — this is what lets the predictor/completer continually enlarge the
// column while a single enumeration is in progress. Returns nil once a
// full cycle over all buckets yields no new state.
func (c *Column) NextState() *state.State {
	for i := 0; i < NumBuckets; i++ {
		idx := (c.enumBucket + i) % NumBuckets
		b := &c.buckets[idx]
		var next *state.State
		if b.cursor == nil {
			next = b.head
		} else {
			next = b.cursor.BucketNext()
		}
		if next != nil {
			b.cursor = next
			c.enumBucket = (idx + 1) % NumBuckets
			return next
		}
	}
	return nil
}

// ResetEnum rewinds every bucket's enumeration cursor to the start, used to
// re-scan a column's final states at parse end (spec.md §4.3, §4.5
// "Extraction of the result").
func (c *Column) ResetEnum() {
	for i := range c.buckets {
		c.buckets[i].cursor = nil
	}
	c.enumBucket = 0
}

// NTHead returns the head of the completer chain for nonterminal nt — the
// most recently added state whose symbol at the dot is nt (spec.md §4.3).
// Walk it with state.State.NTNext until nil.
func (c *Column) NTHead(nt grammar.Symbol) *state.State {
	return c.ntHeads[nt]
}

// MarkSeen reports whether nt has already been predicted in this column
// and, if not, marks it seen. This guards the predictor's "push every
// production of nt" branch; spec.md §4.5/§9 are explicit that the matching
// H-set replay must NOT be gated by this flag, so callers must consult
// MarkSeen only for that branch.
func (c *Column) MarkSeen(nt grammar.Symbol) (alreadySeen bool) {
	alreadySeen = c.predicted[nt]
	c.predicted[nt] = true
	return alreadySeen
}

// ResetPredicted clears every nonterminal's "already predicted" flag,
// called once before the main loop begins processing this column (spec.md
// §4.5 step 2).
func (c *Column) ResetPredicted() {
	for k := range c.predicted {
		delete(c.predicted, k)
	}
}

// StartParse acquires this column's match cache (spec.md §4.3, §5: "only
// the current-and-next column hold caches at any time").
func (c *Column) StartParse() {
	if c.matchCache == nil {
		c.matchCache = make([]byte, c.g.NumTerminals()+1)
	}
}

// StopParse releases this column's match cache.
func (c *Column) StopParse() {
	c.matchCache = nil
}

// Matches reports whether the column's current token matches terminal,
// consulting (and populating) the tri-state match cache so the host
// callback is invoked at most once per (column, terminal) pair (spec.md
// §4.3, §8 property 5). The sentinel column (TokenID == MaxTokenID) always
// returns false without calling the matcher.
func (c *Column) Matches(terminal grammar.Symbol) bool {
	if c.TokenID == MaxTokenID {
		return false
	}
	if c.matchCache == nil {
		c.StartParse()
	}
	if terminal <= 0 || int(terminal) >= len(c.matchCache) {
		return false
	}
	switch c.matchCache[terminal] {
	case cacheMatched:
		return true
	case cacheNotMatched:
		return false
	}
	c.cacheCalls++
	ok := c.matcher(c.handle, c.TokenID, terminal)
	if ok {
		c.matchCache[terminal] = cacheMatched
	} else {
		c.matchCache[terminal] = cacheNotMatched
	}
	return ok
}

// MatcherCalls returns the number of times the host matching callback was
// actually invoked for this column (i.e. cache misses), for the allocation
// / diagnostics report (spec.md §4.6, §7).
func (c *Column) MatcherCalls() uint64 { return c.cacheCalls }

// FirstState returns the column's earliest-inserted state (insertion
// order, not hash order), or nil for an empty column.
func (c *Column) FirstState() *state.State { return c.colHead }

// DebugStates returns every state currently in the column as strings,
// sorted for reproducible debug output — bucket order depends on a state's
// Hash(), which mixes in pointer bits and so varies run to run, which would
// otherwise make two debug dumps of an equivalent parse look different.
func (c *Column) DebugStates() []string {
	out := make([]string, 0, c.size)
	for s := c.colHead; s != nil; s = s.ColNext() {
		out = append(out, s.String())
	}
	slices.SortFunc(out, func(a, b string) bool { return a < b })
	return out
}
