// Package vybiumsnippets is the public entry point to the Vybium snippet
// library: reusable assembly fragments for the Vybium stack VM over the
// Goldilocks field, each paired with a native reference implementation.
//
// # Using a snippet
//
// Every snippet in the catalog is identified by its entrypoint label.
// Linking a snippet yields a standalone program that calls it and halts:
//
//	s, err := vybiumsnippets.Lookup("vybium_arithmetic_u64_add")
//	if err != nil {
//		log.Fatal(err)
//	}
//	program, err := vybiumsnippets.Link(s)
//
// # Verification
//
// Verify runs a snippet's generated code and its reference implementation
// on the same initial states and fails on the first state where the final
// stacks, memories, outputs or sponges disagree:
//
//	cfg := vybiumsnippets.DefaultConfig()
//	if err := vybiumsnippets.Verify(context.Background(), s, cfg); err != nil {
//		log.Fatal(err)
//	}
//
// # Benchmarks
//
// BenchmarkAll measures every snippet on its common and worst case states
// and writes one YAML file per snippet to cfg.BenchmarkDir.
//
// # Architecture
//
//   - pkg/vybium-snippets/: Public API (this package)
//   - internal/vybium-snippets/: VM, assembler, library linker, oracle and the catalog
package vybiumsnippets
