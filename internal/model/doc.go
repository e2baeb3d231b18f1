// Package model defines the data structures shared across nsetinspect.
//
// This package contains the following main types:
//   - Category: the kind of anomaly a token was flagged with
//   - Anomaly: one flagged token
//   - Summary and LengthHistogram: length statistics over a registry
//   - Analysis: everything the aggregator derives from one decoding pass
//   - Inspection: one inspection run, the unit that reports and the
//     history database work with
//
// All values are derived from a single pass over a registry file and are
// not modified after construction. They serialize to JSON for report output
// and history storage.
package model
