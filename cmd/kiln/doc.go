// Command kiln builds multi-crate workspaces into minimal runtime images.
// It caches third-party dependency artifacts by workspace content so that
// source-only changes skip straight to the first-party rebuild, records every
// run in a local ledger, and can watch workspaces to rebuild on change.
package main
