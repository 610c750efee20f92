/*
Package arena implements the chunked bump allocator for parser states
(spec.md §4.4). States are numerous and short-lived: the Earley–Scott main
loop constantly builds a candidate state and then discovers — via the
column's hash table — that it is a duplicate, in which case the candidate
must be thrown away in O(1). A slice-backed arena with simple chunk
chaining gives both: O(1) allocation by bump pointer, and O(1) discard of
the most recently allocated state by popping the pointer back one slot.

There is no equivalent of this in the teacher repository (a pure-Go,
garbage-collected library has little reason to hand-roll an arena); it
follows the teacher's general preference for preallocated backing storage
(lr/earley/earley.go's `states: make([]*iteratable.Set, 1, 512)`) scaled up
to spec.md §4.4's explicit chunk-and-discard design. See DESIGN.md.

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package arena

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/npillmayer/eparser/state"
)

// tracer traces with key 'eparser.arena'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.arena")
}

// ChunkSize is the number of states per chunk (spec.md §4.4 suggests 2048).
const ChunkSize = 2048

// chunk is a fixed-size backing array of states, bump-allocated from the
// front. Chunks are linked in allocation order so the whole arena can be
// walked and freed at parse end.
type chunk struct {
	states [ChunkSize]state.State
	used   int
	next   *chunk
}

// Arena is a singly linked list of chunks. All chunks are released in one
// sweep at parse end (Reset); discarding the most recently allocated state
// (Discard) is O(1) and never crosses a chunk boundary, since a discard
// always immediately follows the allocation it is undoing.
type Arena struct {
	head     *chunk // most recently allocated chunk; allocation happens here
	tail     *chunk // oldest chunk, the end of the chunk list
	nChunks  int
	nAlloc   int // total states ever allocated (diagnostic counter)
	nDiscard int // total states discarded via Discard (diagnostic counter)
}

// New returns an empty arena with no chunks allocated yet.
func New() *Arena {
	return &Arena{}
}

// Alloc returns a freshly initialized state. Amortized O(1): a bump of the
// current chunk's pointer, linking a new chunk only when the current one
// fills up.
func (a *Arena) Alloc() *state.State {
	if a.head == nil || a.head.used == ChunkSize {
		a.linkNewChunk()
	}
	s := &a.head.states[a.head.used]
	a.head.used++
	a.nAlloc++
	return s
}

func (a *Arena) linkNewChunk() {
	c := &chunk{}
	c.next = a.head
	a.head = c
	a.nChunks++
	if a.tail == nil {
		a.tail = c
	}
	tracer().Debugf("arena: linked chunk #%d", a.nChunks)
}

// Discard undoes the most recent Alloc from this arena: the bump pointer is
// popped back one slot and the slot's destructor (state.State.Reset) runs,
// so stale SPPF-node references don't linger. Callers must only ever
// discard the state that was just allocated — spec.md §4.4 requires this
// invariant, and the arena does not defend against violating it (there is
// no parent/child bookkeeping to check against, by design: this path is hot
// and runs once per duplicate candidate state). A scanner state whose
// terminal does not match is not discarded here: it stays in its column.
func (a *Arena) Discard(s *state.State) {
	if a.head == nil || a.head.used == 0 {
		return
	}
	last := &a.head.states[a.head.used-1]
	if last != s {
		// Not the most recent allocation: spec.md §4.4 only ever asks for
		// O(1) discard of the most-recently-allocated candidate, so this
		// signals a caller bug rather than a recoverable condition.
		tracer().Errorf("arena: Discard called on a non-most-recent state")
		return
	}
	last.Reset()
	a.head.used--
	a.nDiscard++
}

// Reset frees every chunk the arena holds. Called once at parse end
// (spec.md §3 "Lifecycle", §5 "the arena acquires memory in chunks and
// releases all chunks at parse end").
func (a *Arena) Reset() {
	a.head = nil
	a.tail = nil
	a.nChunks = 0
}

// Allocated returns the number of states allocated from this arena over its
// lifetime (not reduced by Discard — see Live for the net count).
func (a *Arena) Allocated() int { return a.nAlloc }

// Discarded returns the number of states discarded via Discard, for the
// allocation-balance report (spec.md §4.6, §7).
func (a *Arena) Discarded() int { return a.nDiscard }

// Live returns the net number of states still considered allocated (i.e.
// never discarded). Used by the allocation-balance report's state counter.
func (a *Arena) Live() int { return a.nAlloc - a.nDiscard }

// Chunks returns the number of chunks currently linked into the arena.
func (a *Arena) Chunks() int { return a.nChunks }
