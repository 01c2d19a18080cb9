// Package buildtool drives the workspace compiler. The pipeline only needs
// two operations from it: a dependency build against stub trees and a real
// build producing the final executable. Failures are tagged so operators can
// tell a manifest/lockfile/network problem from a first-party defect.
package buildtool
