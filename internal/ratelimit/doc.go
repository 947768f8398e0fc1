// Package ratelimit bounds outgoing provider usage. Two budgets compose: a
// sliding 60-second window limiting requests and estimated tokens per minute
// (admission is a poll-and-recheck loop, adequate at tens of requests per
// minute), and an optional non-resetting session budget whose exhaustion
// aborts the remaining batch instead of delaying it.
package ratelimit
