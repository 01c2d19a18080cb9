// Package logging constructs slog loggers for the kiln CLI. It supports a
// human-oriented console format and a machine-oriented JSON format, writing to
// stdout/stderr and optionally to a log file under the configured log
// directory.
package logging
