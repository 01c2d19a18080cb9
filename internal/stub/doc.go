// Package stub builds and tears down the throwaway source trees used by the
// dependency pre-fetch stage, and restores real source behind the cache
// invalidation barrier. A stub tree is the minimal input that makes the
// compiler resolve and build third-party dependencies: a do-nothing entry
// point for the binary crate and an empty library unit for everything else.
package stub
