// Package watcher keeps corpus indexes current while the server runs.
//
// Each corpus path, a single file or a directory tree, is watched with
// fsnotify, falling back to polling where fsnotify is unavailable (network
// mounts, some container volumes). Bursts of events from editors and sync
// tools are debounced into one batch, the corpus is rebuilt, and the new
// index is swapped into the router without blocking in-flight searches.
//
// Usage:
//
//	cw := watcher.NewCorpusWatcher(router, build, watcher.DefaultOptions(), targets...)
//	go func() { _ = cw.Run(ctx) }()
package watcher
