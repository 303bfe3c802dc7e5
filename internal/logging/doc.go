// Package logging constructs slog loggers with the console and JSON
// handlers used throughout recap, plus typed attribute helpers and
// context-derived structured fields.
package logging
