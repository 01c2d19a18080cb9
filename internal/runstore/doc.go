// Package runstore persists the run ledger: one row per pipeline run plus its
// stage transitions, backed by SQLite. The ledger is how operators see which
// stage a run died in and whether the dependency cache was hit, without
// replaying logs.
package runstore
