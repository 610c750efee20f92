/*
Package capi exposes the Earley–Scott parser across a C ABI: opaque integer
handles for Grammar and Parser values, a parse entry point taking a raw
token array, and diagnostics (forest dump, combination count, allocation
balance report) for a host written in C or any language with a C FFI
(spec.md §4.6).

Handles, not pointers, cross the boundary

Returning a Go pointer to C is legal but fragile once the Go garbage
collector is involved (a C caller has no way to pin it); this package
follows the usual cgo idiom instead, keeping every live Grammar/Parser/Node
in a package-level map keyed by a monotonically increasing handle and
handing the integer key across the boundary. Destroy* calls remove the map
entry, after which the handle is invalid and every further call returns a
zero value / false.

Worked example

	hg := capi.NewGrammar("icegrammar.bin")
	if hg == 0 {
	    // load failed; no grammar handle was issued
	}
	defer capi.DestroyGrammar(hg)

	hp := capi.NewParser(hg, nil) // nil matcher => identity
	defer capi.DestroyParser(hp)

	tokens := []uint32{1, 2, 3, 1, 2, 4, 3, 1, 2}
	root, errTok := capi.Parse(hp, 1, -1, len(tokens), tokens)
	if root == 0 {
	    fmt.Println("parse failed at", errTok)
	    return
	}
	defer capi.ReleaseForest(root)
	fmt.Println(capi.NumCombinations(root))
	fmt.Println(capi.Report(hp))

License

Governed by a 3-Clause BSD license, as the module this package belongs to.
*/
package capi
