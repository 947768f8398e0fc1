// Package glossary maintains the persisted term-translation mapping that is
// enforced as a constraint in every translation prompt. The store is shared
// by all chapter units of a book, so every mutation happens under a lock and
// is written back to glossary.json immediately.
package glossary
