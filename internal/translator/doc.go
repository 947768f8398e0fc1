// Package translator drives one chapter unit through the translation
// pipeline: glossary scoping, prompt construction, rate-limited provider
// call, defensive parsing, speculative persistence, validation, glossary
// merge and the bounded retry state machine. All per-unit failures resolve
// to a terminal status; only session-quota exhaustion escapes to the caller.
package translator
