// Package preflight runs the checks behind `docsmcp doctor`.
//
// The package validates:
//   - Configuration validity
//   - Each corpus path (exists, readable, has documentation files)
//   - Write permissions in the log directory
//   - File descriptor limits when watching corpora
//   - Semantic search settings, optionally probing the vector store
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithProbe(probe))
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
