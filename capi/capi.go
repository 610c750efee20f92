//go:build cgo

package capi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
	"github.com/pterm/pterm"

	"github.com/npillmayer/eparser/earley"
	"github.com/npillmayer/eparser/forest"
	"github.com/npillmayer/eparser/grammar"
)

// tracer traces with key 'eparser.capi'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.capi")
}

// Handle is an opaque reference a C host can hold and pass back across the
// boundary without ever seeing a Go pointer (spec.md §4.6).
type Handle int64

var nextHandle int64 // atomically incremented; 0 is never issued, so it
// doubles as the "invalid handle" sentinel.

func newHandle() Handle {
	return Handle(atomic.AddInt64(&nextHandle, 1))
}

var (
	mu       sync.Mutex
	grammars = map[Handle]*grammar.Grammar{}
	parsers  = map[Handle]*earley.Parser{}
	nodes    = map[Handle]*forest.Node{}
	reports  = map[Handle]earley.Report{}
)

// NewGrammar loads the binary grammar file at path and returns a handle to
// it, or 0 if the file could not be loaded (spec.md §4.6, §7). The load
// error itself is only traced; callers that need it should load through
// package grammar directly.
func NewGrammar(path string) Handle {
	g, err := grammar.LoadFile(path)
	if err != nil {
		tracer().Errorf("NewGrammar: %s", err.Error())
		return 0
	}
	h := newHandle()
	mu.Lock()
	grammars[h] = g
	mu.Unlock()
	return h
}

// DestroyGrammar invalidates a grammar handle. It is a no-op if h is
// already invalid. Parsers hold their own pointer to *grammar.Grammar, so
// destroying the handle here never invalidates a parser created from it.
func DestroyGrammar(h Handle) {
	mu.Lock()
	delete(grammars, h)
	mu.Unlock()
}

// NewParser binds a Parser to the grammar behind hg, using matcher (or the
// identity matcher if matcher is nil), and returns its handle, or 0 if hg is
// invalid.
func NewParser(hg Handle, matcher earley.MatchFunc) Handle {
	mu.Lock()
	g, ok := grammars[hg]
	mu.Unlock()
	if !ok {
		tracer().Errorf("NewParser: invalid grammar handle %d", hg)
		return 0
	}
	p := earley.NewParser(g, matcher)
	h := newHandle()
	mu.Lock()
	parsers[h] = p
	mu.Unlock()
	return h
}

// DestroyParser invalidates a parser handle and its last diagnostic report.
func DestroyParser(h Handle) {
	mu.Lock()
	delete(parsers, h)
	delete(reports, h)
	mu.Unlock()
}

// Parse runs one parse on the parser behind hp (spec.md §4.6's
// `(parser, nTokens, handle, *errorToken) → node*`). tokens may be nil, in
// which case the identity sequence 0…nTokens−1 is used; nTokens is taken
// from len(tokens) when tokens is non-nil. Returns a node handle (0 on
// failure) and the error token (0 on success).
func Parse(hp Handle, callHandle int64, startNT grammar.Symbol, nTokens int, tokens []uint32) (Handle, int) {
	mu.Lock()
	p, ok := parsers[hp]
	mu.Unlock()
	if !ok {
		return 0, 0
	}
	if tokens != nil {
		nTokens = len(tokens)
	}
	root, errTok := p.Parse(callHandle, startNT, nTokens, tokens)
	mu.Lock()
	reports[hp] = p.LastReport()
	mu.Unlock()
	if root == nil {
		return 0, errTok
	}
	h := newHandle()
	mu.Lock()
	nodes[h] = root
	mu.Unlock()
	return h, 0
}

// ReleaseForest drops the caller's reference on the forest behind h (via
// forest.Node.Release, spec.md §3 "Lifecycle") and invalidates the handle.
func ReleaseForest(h Handle) {
	mu.Lock()
	n, ok := nodes[h]
	delete(nodes, h)
	mu.Unlock()
	if ok {
		n.Release()
	}
}

// NumCombinations returns forest.NumCombinations for the node behind h, or 0
// if h is invalid.
func NumCombinations(h Handle) int {
	mu.Lock()
	n, ok := nodes[h]
	mu.Unlock()
	if !ok {
		return 0
	}
	return forest.NumCombinations(n)
}

// DumpForest renders the forest behind h via earley.DumpForest, or the
// empty string if h is invalid.
func DumpForest(h Handle) string {
	mu.Lock()
	n, ok := nodes[h]
	mu.Unlock()
	if !ok {
		return ""
	}
	return earley.DumpForest(n)
}

// Report renders the allocation-balance report for the most recently
// completed parse on the parser behind hp, as a table: nonterminals,
// productions, grammars, nodes, states, chunks, columns, H-set nodes,
// discarded-state count, matching-function call count, dictionary lookup
// count (spec.md §4.6). The grammar count is the number of grammar handles
// currently registered in this process, not a per-parser figure — a Parser
// is bound to exactly one grammar, but a host may juggle several.
func Report(hp Handle) string {
	mu.Lock()
	p, okP := parsers[hp]
	r, okR := reports[hp]
	numGrammars := len(grammars)
	mu.Unlock()
	if !okP || !okR {
		return ""
	}
	g := p.Grammar()
	rows := pterm.TableData{
		{"metric", "value"},
		{"nonterminals", fmt.Sprintf("%d", g.NumNonterminals())},
		{"terminals", fmt.Sprintf("%d", g.NumTerminals())},
		{"productions", fmt.Sprintf("%d", r.NumProductions)},
		{"grammars", fmt.Sprintf("%d", numGrammars)},
		{"columns", fmt.Sprintf("%d", r.Columns)},
		{"nodes created", fmt.Sprintf("%d", r.NodesCreated)},
		{"nodes live", fmt.Sprintf("%d", r.NodesLive)},
		{"dictionary lookups", fmt.Sprintf("%d", r.DictLookups)},
		{"states allocated", fmt.Sprintf("%d", r.StatesAllocated)},
		{"states discarded", fmt.Sprintf("%d", r.StatesDiscarded)},
		{"states live", fmt.Sprintf("%d", r.StatesLive)},
		{"arena chunks", fmt.Sprintf("%d", r.Chunks)},
		{"H-set insertions", fmt.Sprintf("%d", r.HSetInsertions)},
		{"matcher calls", fmt.Sprintf("%d", r.MatcherCalls)},
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return fmt.Sprintf("<report render error: %s>", err.Error())
	}
	return s
}
