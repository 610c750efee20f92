/*
Package eparser implements an Earley–Scott context-free parser with inline
Shared Packed Parse Forest (SPPF) construction.

eparser recognizes a token stream against a grammar loaded from a compiled
binary file and builds, in the same pass, a DAG representing every
derivation of that stream — ambiguity becomes a node with more than one
family, not a separate forest per tree. Package structure is as follows:

■ grammar: the nonterminal/production model and the binary grammar-file
loader.

■ state: the Earley item (nonterminal, production, dot, start position,
SPPF node).

■ internal/arena: the chunked bump allocator states are carved from.

■ column: one Earley set — a hash-indexed collection of states for a single
input position.

■ forest: the SPPF node store — labelled, reference-counted, deduplicated
nodes.

■ earley: the predictor/completer/scanner main loop tying the above
together, plus the forest diagnostics dumper.

■ capi: an opaque-handle C ABI surface over the above, for hosts driving the
parser from outside Go.

■ cmd/eparse: a command-line driver for ad hoc grammar/token testing.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package eparser
