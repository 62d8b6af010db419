// Package readermark implements the multi-reader marker protocol for cached
// files. A marker is a directory created next to the cached file; as long as
// at least one marker exists, cleanup tooling must leave the file alone.
// Markers are uniquely named per process, timestamp, and call, so any number
// of readers may hold one concurrently.
//
// Go has no process-exit hooks, so marker release is scoped: Acquire returns
// a handle the caller releases on every exit path, and the CLI additionally
// wires Registry.ReleaseAll to SIGINT/SIGTERM. Markers left behind by killed
// processes are collected by PruneStale.
package readermark
