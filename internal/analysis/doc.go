// Package analysis classifies registry tokens and aggregates length
// statistics over a decoded registry.
//
// Analyze makes a single pass over a token sequence, running the Classifier
// on every token as it goes:
//
//	dec := registry.NewDecoder(f)
//	result := analysis.Analyze(dec.All(), analysis.DefaultClassifier())
//	if result.IsEmpty() {
//	    fmt.Println("Registry is empty.")
//	}
//
// Classification rules are evaluated in a fixed order and the first match
// wins, so a token never carries more than one category.
package analysis
