// Package history records every translation attempt in a per-book SQLite
// file so audits can explain why a chapter keeps failing. Recording is
// best-effort; the pipeline never fails because the log does.
package history
