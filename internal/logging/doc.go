// Package logging builds the slog loggers used throughout jellyplex and
// provides typed attribute helpers so call sites stay consistent. Verbosity is
// carried by the logger itself; no package mutates a process-wide level.
package logging
