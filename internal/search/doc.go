// Package search implements keyword retrieval over documentation corpora.
//
// An Index is built once from a corpus path and is read-only afterwards, so
// any number of goroutines may search it concurrently without locking.
// Queries are normalized and tokenized, chunks are scored by prefix matches
// in their heading and body, and each result is annotated with line
// citations into the original file. When a semantic searcher is attached,
// it is consulted first and the keyword path serves as the fallback.
//
// A Router holds one Index per documentation domain and picks a domain for
// queries that do not name one.
package search
