// Package config loads and validates the kiln configuration file. The file is
// TOML with a [paths] section for tool state directories, [build] and [image]
// defaults shared by every pipeline, and one [[pipeline]] block per deployable
// workspace.
package config
