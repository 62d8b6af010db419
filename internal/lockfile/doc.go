// Package lockfile provides the exclusive cache lock. One lock exists per
// cache instance, not per file: every copy decision across every process on
// the node serializes through it.
package lockfile
