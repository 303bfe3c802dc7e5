// Package tracker persists executions of the caption pipeline in SQLite
// and enforces the single-flight guarantee: at most one non-terminal
// execution per normalized target path.
package tracker
