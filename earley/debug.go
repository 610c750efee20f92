package earley

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/npillmayer/eparser/forest"
	"github.com/npillmayer/eparser/grammar"
)

// DumpForest renders an SPPF rooted at root as an indented tree, one line
// per node, ambiguous nodes (more than one family) expanding into a
// labelled child per alternative. This mirrors the teacher's
// terex/terexlang/trepl tree-printing command, built the same way: collect
// a pterm.LeveledList by walking the structure recursively, then hand it to
// pterm.NewTreeFromLeveledList (terex/terexlang/trepl/repl.go's
// indentedListFrom/leveledElem).
//
// DumpForest is a diagnostic helper only; it does not affect reference
// counts (it neither acquires nor releases root or any node it visits).
func DumpForest(root *forest.Node) string {
	ll := leveledForest(root, pterm.LeveledList{}, 0)
	tree := pterm.NewTreeFromLeveledList(ll)
	s, err := pterm.DefaultTree.WithRoot(tree).Srender()
	if err != nil {
		return fmt.Sprintf("<DumpForest render error: %s>", err.Error())
	}
	return s
}

func leveledForest(n *forest.Node, ll pterm.LeveledList, level int) pterm.LeveledList {
	if n == nil {
		return append(ll, pterm.LeveledListItem{Level: level, Text: "ε"})
	}
	ll = append(ll, pterm.LeveledListItem{Level: level, Text: nodeLine(n)})
	families := n.Families()
	for i, f := range families {
		if len(families) > 1 {
			ll = append(ll, pterm.LeveledListItem{
				Level: level + 1,
				Text:  fmt.Sprintf("family %d/%d (production %d)", i+1, len(families), prodID(f.Prod)),
			})
			ll = leveledForest(f.W, ll, level+2)
			ll = leveledForest(f.V, ll, level+2)
		} else {
			ll = leveledForest(f.W, ll, level+1)
			ll = leveledForest(f.V, ll, level+1)
		}
	}
	return ll
}

func nodeLine(n *forest.Node) string {
	return fmt.Sprintf("%s  [%s]", n.String(), forest.Signature(n.Label))
}

func prodID(p *grammar.Production) int64 {
	if p == nil {
		return -1
	}
	return int64(p.ID)
}
