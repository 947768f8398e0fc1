// Package validate implements the quality gate applied to candidate
// translations before they are accepted. The checks are deterministic text
// heuristics run in a fixed short-circuit order; the first failing check
// determines the typed reject reason.
package validate
