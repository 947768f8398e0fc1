// Package processor wires the translation pipeline together from the
// command-line flags: provider selection, shared rate limiter and session
// budget, per-book glossary and attempt history, and the mode dispatch
// between EPUB extraction, site regeneration and the batch driver.
package processor
