// Package pipeline orchestrates one build from manifests to runtime image.
// The flow is strictly linear: load manifests, build third-party dependencies
// against stub trees (or restore them from cache), swap real source in behind
// the invalidation barrier, rebuild only first-party crates, and assemble the
// minimal runtime image. Any stage failure is fatal to the run; the
// dependency cache is the only state that survives into the next attempt.
package pipeline
