// Package logging assembles the structured slog loggers used by hotseats.
//
// It owns the console and JSON handlers, level parsing and the field names
// shared by the pipeline packages. Library code accepts a *slog.Logger and
// falls back to NewNop when none is supplied.
package logging
