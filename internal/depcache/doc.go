// Package depcache persists compiled third-party dependency artifacts across
// pipeline runs. Entries are keyed by the content of the workspace's
// manifests, lockfile, and canonical stub bodies, so a key survives any
// source-only change and rolls over on any dependency change. The disk store
// gives at-most-one-writer-per-key semantics; concurrent readers are safe
// once an entry is complete.
package depcache
