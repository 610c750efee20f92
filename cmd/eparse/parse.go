package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/npillmayer/eparser/earley"
	"github.com/npillmayer/eparser/forest"
	"github.com/npillmayer/eparser/grammar"
)

var parseFlags = struct {
	grammarPath *string
	tokens      *string
	startNT     *int32
	report      *bool
	dump        *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse",
		Short:   "Parse a comma-separated numeric token list against a compiled grammar",
		Example: `  eparse parse --grammar icegrammar.bin --tokens 1,2,3,1,2,4,3,1,2`,
		RunE:    runParse,
	}
	parseFlags.grammarPath = cmd.Flags().StringP("grammar", "g", "", "path to a compiled binary grammar file")
	parseFlags.tokens = cmd.Flags().StringP("tokens", "t", "", "comma-separated token ids")
	parseFlags.startNT = cmd.Flags().Int32P("start", "s", -1, "start nonterminal id (negative)")
	parseFlags.report = cmd.Flags().Bool("report", false, "print the allocation/diagnostics report")
	parseFlags.dump = cmd.Flags().Bool("dump", false, "print the SPPF forest")
	cmd.MarkFlagRequired("grammar")
	cmd.MarkFlagRequired("tokens")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	g, err := grammar.LoadFile(*parseFlags.grammarPath)
	if err != nil {
		return fmt.Errorf("loading grammar: %w", err)
	}

	tokens, err := parseTokens(*parseFlags.tokens)
	if err != nil {
		return err
	}

	p := earley.NewParser(g, earley.Identity)
	root, errTok := p.Parse(0, grammar.Symbol(*parseFlags.startNT), len(tokens), tokens)
	if root == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "reject: no progress past column %d\n", errTok)
	} else {
		defer root.Release()
		fmt.Fprintf(cmd.OutOrStdout(), "accept: %d combination(s)\n", forest.NumCombinations(root))
		if *parseFlags.dump {
			fmt.Fprintln(cmd.OutOrStdout(), earley.DumpForest(root))
		}
	}
	if *parseFlags.report {
		r := p.LastReport()
		fmt.Fprintf(cmd.OutOrStdout(), "grammar: %d nonterminals, %d productions, %d columns\n",
			r.NumNonterminals, r.NumProductions, r.Columns)
		fmt.Fprintf(cmd.OutOrStdout(), "states: %d allocated, %d discarded, %d live, %d chunks\n",
			r.StatesAllocated, r.StatesDiscarded, r.StatesLive, r.Chunks)
		fmt.Fprintf(cmd.OutOrStdout(), "nodes: %d created, %d live; dictionary lookups: %d\n",
			r.NodesCreated, r.NodesLive, r.DictLookups)
		fmt.Fprintf(cmd.OutOrStdout(), "matcher calls: %d, H-set insertions: %d\n",
			r.MatcherCalls, r.HSetInsertions)
	}
	return nil
}

func parseTokens(s string) ([]uint32, error) {
	parts := strings.Split(s, ",")
	tokens := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q: %w", p, err)
		}
		tokens = append(tokens, uint32(v))
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens given")
	}
	return tokens, nil
}
