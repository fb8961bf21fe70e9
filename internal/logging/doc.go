// Package logging assembles the structured slog loggers used across rigshift.
//
// It owns the console and JSON handlers, tees each run into a per-run JSON
// file under the configured log directory, prunes old run logs, and exposes
// context-aware helpers so pipeline code can tag lines with session, job,
// frame, and correlation IDs. NewNop gives tests and optional wiring a logger
// that cannot fail.
package logging
