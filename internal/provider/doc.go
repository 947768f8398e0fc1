// Package provider wraps the translation model APIs behind one capability:
// submit a system and user prompt, receive a structured translation result
// or a typed error. Two backends are supported: any OpenAI-compatible chat
// completions endpoint and the Gemini API. The response schema is treated as
// advisory; results are always re-parsed defensively.
package provider
