// Package pipeline runs the steps of an inspection in sequence.
//
// An inspection passes through up to three steps: decoding and analyzing
// the registry, comparing it against its source corpus, and recording the
// result in the history database. Each step is a Step that receives the
// current inspection and fills in its part.
//
// The decoding core runs synchronously inside AnalyzeStep. Concurrency
// lives at the edges: the corpus scanner probes files in parallel and the
// BatchProcessor inspects several registries at once using errgroup.
package pipeline
