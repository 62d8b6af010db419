// Package cache implements the node-local cache coordination protocol.
//
// A Coordinator maps files on a slow shared mount to local copies, using only
// the filesystem as the synchronization medium: a single flock-backed
// exclusive lock serializes copy decisions across every process on the node,
// and per-reader marker directories keep cleanup tooling from deleting files
// that are in use. Resolves degrade to the remote path whenever caching is
// disabled, the input is missing or not a regular file, or the local
// filesystem would exceed its capacity ceiling.
package cache
