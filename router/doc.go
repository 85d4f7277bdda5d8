// Package router selects model providers and executes completions
// with fallback. A routing strategy (cost, speed, quality, fallback)
// orders the candidate models; transient provider failures trigger
// exponential backoff and failover to the next candidate, while
// configuration level failures surface immediately.
//
// Provider health is tracked per provider: repeated failures inside a
// window open a breaker that removes the provider from routing until a
// cooldown passes, after which a single probe request decides whether
// it rejoins.
//
// Concrete adapters for OpenAI and Anthropic live in the openai and
// anthropic subpackages; ScriptedProvider serves tests and demos.
package router
