// Package main provides the entry point for the nsetinspect CLI.
//
// nsetinspect reads the binary token registry written by the NSET tokenizer
// (nset_vocab.bin) and reports the token length distribution, summary
// statistics and tokens that look malformed.
//
// Usage:
//
//	nsetinspect inspect [registry]
//	nsetinspect density [corpus-root] --vocab nset_vocab.bin
//	nsetinspect history [registry]
//
// See --help for all available options.
package main

// main is the entry point for nsetinspect.
func main() {
	Execute()
}
