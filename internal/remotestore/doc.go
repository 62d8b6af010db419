// Package remotestore abstracts the shared storage files are cached from.
// The cache coordinator only needs existence checks, size queries, and a
// blocking copy primitive, so tests can substitute an in-memory fake and the
// production path uses the POSIX mount directly.
package remotestore
