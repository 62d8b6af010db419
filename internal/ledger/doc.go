// Package ledger records resolve outcomes in a SQLite database so status and
// history commands can report cache behavior across processes. The ledger is
// observability only: the cache protocol never consults it, and a nil ledger
// disables recording entirely.
package ledger
