// Package corpus measures the source tree a registry was built from.
//
// The Scanner walks a directory, skipping hidden directories, keeps files
// whose extension is in its list and sums their sizes. Files are probed
// concurrently with an errgroup; the walk itself is sequential.
package corpus
