/*
Package earley implements the Earley–Scott parser engine (spec.md §4.5):
the predictor/completer/scanner main loop, H-set handling for nullable
completions, and Scott's node-construction function for building the SPPF
incrementally, column by column, instead of in a second derivation-walking
pass.

This generalizes the teacher's Parser (package lr/earley in the teacher
repo: NewParser + functional Option bitmask + tracer(), and a per-item
scan/predict/complete dispatch loop) onto the data structures spec.md
demands — hash-indexed *column.Column sets and arena-backed *state.State
items — instead of the teacher's generic iteratable.Set of lr.Item values.
Unlike the teacher, this engine builds the SPPF inline during recognition
(Scott's optimization) rather than in a second WalkDerivation pass, and
tracks the per-column H-set the teacher's recognizer has no need for.

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package earley

import (
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/npillmayer/schuko/tracing"

	"github.com/npillmayer/eparser/column"
	"github.com/npillmayer/eparser/forest"
	"github.com/npillmayer/eparser/grammar"
	"github.com/npillmayer/eparser/internal/arena"
	"github.com/npillmayer/eparser/state"
)

// tracer traces with key 'eparser.earley'.
func tracer() tracing.Trace {
	return tracing.Select("eparser.earley")
}

// MatchFunc is the host-supplied token/terminal matching callback (spec.md
// §6). The default identity matcher, Identity, returns token == terminal.
type MatchFunc = column.MatchFunc

// Identity is the default matching callback: a token matches a terminal
// iff their numeric ids are equal (spec.md §6).
func Identity(_ int64, token uint32, terminal grammar.Symbol) bool {
	return grammar.Symbol(token) == terminal
}

// hEntry is one element of a column's H-set: a nonterminal together with
// the SPPF node produced by its nullable completion in the current column
// (spec.md §4.5, Completer case, "record (B, w) in the current H set").
type hEntry struct {
	NT   grammar.Symbol
	Node *forest.Node
}

// Option configures a Parser, following the teacher's functional-options
// pattern (lr/earley/earley.go's Option/StoreTokens/GenerateTree).
type Option func(p *Parser)

const (
	optionTrace uint = 1 << 1 // emit per-column debug tracing (default off)
)

// Trace enables or disables verbose per-column tracing.
func Trace(b bool) Option {
	return func(p *Parser) {
		if b {
			p.mode |= optionTrace
		} else {
			p.mode &^= optionTrace
		}
	}
}

// Parser is a reusable Earley–Scott parser bound to one Grammar and one
// matching callback (spec.md §4.5, §5). A Parser may be reused for many
// sequential parses (each call to Parse starts from a clean internal
// state); per spec.md §5 it is not safe to call Parse concurrently from
// multiple goroutines on the same Parser.
type Parser struct {
	g       *grammar.Grammar
	matcher MatchFunc
	mode    uint

	// per-parse state, valid only while a call to Parse is in flight.
	arena    *arena.Arena
	columns  []*column.Column
	dict     *forest.NodeDict
	hset     *hashset.Set
	hsetAdds uint64 // diagnostic: total H-set insertions across the parse

	// createdDict collects every Node the node dictionary created during the
	// parse (one entry per NodeDict.LookupOrAdd call that returned created ==
	// true). finishParse releases each of these exactly once at parse end,
	// discharging the creation reference LookupOrAdd hands out — see
	// forest.NodeDict.Reset for why that reference cannot be released any
	// earlier, and spec.md §8 property 3 for why it must be released at all.
	createdDict []*forest.Node

	// passRefs collects every Node on which a pass-through call site (see
	// makeNode) took a reference for a state it added to a column.
	// finishParse releases each of these once at parse end.
	passRefs []*forest.Node

	// lastReport caches the diagnostics snapshot taken at the end of the most
	// recent Parse call, so LastReport can be queried afterwards even though
	// finishParse has already reset the arena.
	lastReport Report
}

// NewParser creates an Earley–Scott parser for grammar g, using matcher to
// test tokens against terminals (spec.md §6). Pass Identity for the
// default token==terminal behavior.
func NewParser(g *grammar.Grammar, matcher MatchFunc, opts ...Option) *Parser {
	if matcher == nil {
		matcher = Identity
	}
	p := &Parser{g: g, matcher: matcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Grammar returns the grammar this parser is bound to.
func (p *Parser) Grammar() *grammar.Grammar { return p.g }

// Parse recognizes a token stream of nTokens tokens against startNT and
// builds the SPPF for every derivation (spec.md §4.5). tokens may be nil,
// in which case the identity sequence 0…nTokens−1 is substituted (spec.md
// §6, "used by some test cases"); otherwise len(tokens) must equal
// nTokens.
//
// On success it returns the SPPF root (with an external reference count of
// 1 — the caller owns it and must call forest.Node.Release when done) and
// errorToken == 0. On failure it returns a nil root and the input position
// at which parsing could not continue, or nTokens if no spanning parse
// could be extracted from the final column (spec.md §4.5, §6, §7).
func (p *Parser) Parse(handle int64, startNT grammar.Symbol, nTokens int, tokens []uint32) (root *forest.Node, errorToken int) {
	if p == nil || p.g == nil || startNT >= 0 || nTokens <= 0 {
		return nil, 0
	}
	if tokens != nil && len(tokens) != nTokens {
		return nil, 0
	}
	startProds := p.g.Nonterminal(startNT)
	if startProds == nil || startProds.Productions() == nil {
		return nil, 0
	}

	p.arena = arena.New()
	p.dict = forest.NewNodeDict()
	p.hset = hashset.New()
	p.hsetAdds = 0
	p.createdDict = nil
	p.passRefs = nil
	p.columns = make([]*column.Column, nTokens+1)
	for i := 0; i <= nTokens; i++ {
		p.columns[i] = column.New(i, p.tokenAt(i, nTokens, tokens), p.g, p.matcher, handle)
	}
	defer p.finishParse()

	for prod := startProds.Productions(); prod != nil; prod = prod.Next() {
		s := p.arena.Alloc()
		s.Init(startNT, prod, 0, 0, nil)
		if !p.columns[0].AddState(s) {
			p.arena.Discard(s)
		}
	}

	for i := 0; i <= nTokens; i++ {
		col := p.columns[i]
		if col.Size() == 0 {
			tracer().Errorf("parse stalled at column %d: no states to process", i)
			return nil, i
		}
		p.processColumn(col, i, nTokens)
	}

	root = p.extractRoot(startNT, nTokens)
	if root == nil {
		tracer().Errorf("no spanning start state found in final column")
		return nil, nTokens
	}
	return root.Acquire(), 0
}

// tokenAt returns the token id at position i: tokens[i] if an explicit
// array was supplied, the identity sequence 0…n−1 otherwise, and the
// sentinel MaxTokenID for the extra column at position n (spec.md §3,
// §4.5 "column n is a sentinel with token id = max value").
func (p *Parser) tokenAt(i, nTokens int, tokens []uint32) uint32 {
	if i >= nTokens {
		return column.MaxTokenID
	}
	if tokens != nil {
		return tokens[i]
	}
	return uint32(i)
}

// processColumn runs the main-loop body for one column: reset the
// predicted flags, acquire the match cache, drain the column applying
// scanner/predictor/completer, then flush any scanner matches into the
// next column (spec.md §4.5 steps 2–5).
func (p *Parser) processColumn(col *column.Column, i, nTokens int) {
	col.ResetPredicted()
	col.StartParse()

	var pending []*state.State
	for {
		s := col.NextState()
		if s == nil {
			break
		}
		at := s.AtDot()
		switch {
		case at == 0:
			p.completer(col, i, s)
		case at.IsNonterminal():
			p.predictor(col, i, s)
		case at.IsTerminal():
			if col.Matches(at) {
				pending = append(pending, s)
			}
			// mismatch: s simply stays inert in this (soon to be
			// abandoned) column; nothing further to do.
		}
	}
	if p.mode&optionTrace != 0 {
		tracer().Debugf("column %d: %d states %v", i, col.Size(), col.DebugStates())
	}

	if i < nTokens && len(pending) > 0 {
		next := p.columns[i+1]
		termLabel := forest.Label{Symbol: grammar.Symbol(col.TokenID), Dot: 0, I: i, J: i + 1}
		termNode := forest.NewLeaf(termLabel)
		for _, s := range pending {
			v, passThrough := p.makeNode(s, i+1, termNode)
			dotAfter := s.Dot + 1
			s.Init(s.NT, s.Prod, dotAfter, s.Start, v)
			if next.AddState(s) {
				if passThrough {
					p.passRefs = append(p.passRefs, v.Acquire())
				}
			} else {
				// duplicate in the destination column: the Scott
				// in-place increment means s was never freshly
				// arena.Alloc'd here, so there is nothing to pop back —
				// it is simply left unreferenced and collected normally.
				// Acquiring v only above, after AddState confirms s is
				// genuinely new, is what keeps this duplicate from leaking
				// a reference (see makeNode).
				tracer().Debugf("scanner increment for %s was a duplicate in column %d", s, i+1)
			}
		}
		termNode.Release() // drop the transient reference NewLeaf handed out
	}

	p.hset.Clear()
	p.dict.Reset()
	col.StopParse()
}

// predictor implements spec.md §4.5's Predictor case for an item whose
// symbol at the dot, C, is a nonterminal.
func (p *Parser) predictor(col *column.Column, i int, s *state.State) {
	C := s.AtDot()
	if !col.MarkSeen(C) {
		nt := p.g.Nonterminal(C)
		for prod := nt.Productions(); prod != nil; prod = prod.Next() {
			cand := p.arena.Alloc()
			cand.Init(C, prod, 0, i, nil)
			if !col.AddState(cand) {
				p.arena.Discard(cand)
			}
		}
	}
	// The H-set replay is deliberately NOT gated by MarkSeen: even a
	// second encounter of C in this column must still pull matching H-set
	// completions (spec.md §4.5, §9 — the "fix" the teacher's source notes
	// but the newer variant deliberately leaves out of the seen-flag).
	for _, e := range p.hset.Values() {
		entry := e.(hEntry)
		if entry.NT != C {
			continue
		}
		v, passThrough := p.makeNode(s, i, entry.Node)
		cand := p.arena.Alloc()
		cand.Init(s.NT, s.Prod, s.Dot+1, s.Start, v)
		if col.AddState(cand) {
			if passThrough {
				p.passRefs = append(p.passRefs, v.Acquire())
			}
		} else {
			p.arena.Discard(cand)
		}
	}
}

// completer implements spec.md §4.5's Completer case for an item whose dot
// sits at the end of its production.
func (p *Parser) completer(col *column.Column, i int, s *state.State) {
	B, start := s.NT, s.Start
	w := s.Node
	if w == nil {
		epsLabel := forest.Label{Symbol: B, Dot: 0, I: i, J: i}
		var created bool
		w, created = p.dict.LookupOrAdd(epsLabel)
		if created {
			p.createdDict = append(p.createdDict, w)
		}
		w.AddFamily(s.Prod, nil, nil)
	}
	if start == i {
		p.hset.Add(hEntry{NT: B, Node: w})
		p.hsetAdds++
	}
	Sj := p.columns[start]
	for waiting := Sj.NTHead(B); waiting != nil; waiting = waiting.NTNext() {
		v, passThrough := p.makeNode(waiting, i, w)
		cand := p.arena.Alloc()
		cand.Init(waiting.NT, waiting.Prod, waiting.Dot+1, waiting.Start, v)
		if col.AddState(cand) {
			if passThrough {
				p.passRefs = append(p.passRefs, v.Acquire())
			}
		} else {
			p.arena.Discard(cand)
		}
	}
}

// makeNode implements the Scott–Johnstone node-construction function
// (spec.md §4.5): if s has just consumed the first symbol of a production
// with two or more symbols, v is returned directly with no wrapping node
// (there is nothing yet to combine it with) — the second return value
// reports this pass-through case. Otherwise a label is built from s's
// nonterminal, the dot position after advancing (0 once the production is
// complete), the production (nil once complete), and the span (s.Start,
// j); the dictionary resolves it to a shared Node, and the family
// (production, s.Node, v) is attached.
//
// makeNode itself never acquires a reference on v in the pass-through case:
// the candidate state that ends up carrying v may turn out to be a
// duplicate in its column (e.g. two distinct nullable productions of the
// same nonterminal completing at the same span both walk the same waiting
// chain and call makeNode with identical arguments) and get thrown away via
// arena.Discard, which resets the candidate's Node field without releasing
// it. Callers must therefore only call v.Acquire() once col.AddState has
// confirmed the candidate is genuinely new — see predictor, completer and
// processColumn, which also record that reference in passRefs so finishParse
// can release it at parse end. The general (dictionary) branch needs no such care: two
// calls that resolve to the same label also resolve to the same family
// tuple, and Node.AddFamily's own duplicate suppression already guarantees
// at most one acquire per distinct family regardless of how the resulting
// candidate later fares in its column.
func (p *Parser) makeNode(s *state.State, j int, v *forest.Node) (node *forest.Node, passThrough bool) {
	if s.Dot == 0 && s.Prod.Len() >= 2 {
		return v, true
	}
	dotAfter := s.Dot + 1
	var prod *grammar.Production
	dotLabel := dotAfter
	if dotAfter >= s.Prod.Len() {
		dotLabel = 0
	} else {
		prod = s.Prod
	}
	label := forest.Label{Symbol: s.NT, Dot: dotLabel, Prod: prod, I: s.Start, J: j}
	var created bool
	node, created = p.dict.LookupOrAdd(label)
	if created {
		p.createdDict = append(p.createdDict, node)
	}
	node.AddFamily(s.Prod, s.Node, v)
	return node, false
}

// extractRoot scans the final column for a state spanning the entire input
// and matching the start nonterminal (spec.md §4.5, "Extraction of the
// result").
func (p *Parser) extractRoot(startNT grammar.Symbol, nTokens int) *forest.Node {
	last := p.columns[nTokens]
	last.ResetEnum()
	for {
		s := last.NextState()
		if s == nil {
			return nil
		}
		if s.Complete() && s.NT == startNT && s.Start == 0 {
			return s.Node
		}
	}
}

// Report returns a snapshot of this parser's allocation/diagnostic counters
// for the most recently completed parse (spec.md §4.6, §7: "nonterminals,
// productions, grammars, nodes, states, chunks, columns, H-set nodes,
// discarded-state count, matching-function call count, dictionary lookup
// count" — the grammar count itself is a capi-level concern, since a bare
// Parser is bound to exactly one grammar; see capi.Report).
type Report struct {
	NumNonterminals uint32
	NumProductions  uint32
	Columns         int
	NodesCreated    int64
	NodesLive       int64
	DictLookups     uint64
	StatesAllocated int
	StatesDiscarded int
	StatesLive      int
	Chunks          int
	MatcherCalls    uint64
	HSetInsertions  uint64
}

// buildReport assembles a fresh Report from the parser's current per-parse
// state. Called once at the end of Parse, before that state is torn down —
// see finishParse.
func (p *Parser) buildReport() Report {
	r := Report{
		HSetInsertions: p.hsetAdds,
		NodesCreated:   forest.NodesCreated(),
		NodesLive:      forest.NodesLive(),
	}
	if p.g != nil {
		r.NumNonterminals = p.g.NumNonterminals()
		r.NumProductions = p.g.NumProductions()
	}
	if p.arena != nil {
		r.StatesAllocated = p.arena.Allocated()
		r.StatesDiscarded = p.arena.Discarded()
		r.StatesLive = p.arena.Live()
		r.Chunks = p.arena.Chunks()
	}
	if p.dict != nil {
		r.DictLookups = p.dict.Lookups()
	}
	for _, c := range p.columns {
		if c != nil {
			r.Columns++
			r.MatcherCalls += c.MatcherCalls()
		}
	}
	return r
}

// finishParse runs the end-of-parse sweep (spec.md §3, §4.4, §5: arena
// chunks are "freed in one sweep when the parse ends"). Parse defers it once
// the per-parse state exists, so it runs on success and on a stall; the
// argument-validation returns before that point do not run it.
//
// Order matters: the creation references held in createdDict and the
// pass-through references held in passRefs must be released before the
// report is built (so NodesLive in the snapshot reflects reality, not an
// inflated count the host has no way to discharge), and the report must be
// built before the arena is reset (Reset zeroes Chunks()).
func (p *Parser) finishParse() {
	for _, n := range p.createdDict {
		n.Release()
	}
	p.createdDict = nil
	for _, n := range p.passRefs {
		n.Release()
	}
	p.passRefs = nil
	p.lastReport = p.buildReport()
	if p.arena != nil {
		p.arena.Reset()
	}
}

// LastReport returns diagnostic counters for the most recent call to Parse
// that got past argument validation; a call rejected there leaves the
// previous report in place.
func (p *Parser) LastReport() Report {
	return p.lastReport
}
