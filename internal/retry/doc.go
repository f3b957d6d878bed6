// Package retry applies the store retry policy: at most two attempts,
// exponential backoff with a per-operation ceiling, and no retry for
// capacity or script-cache failures.
//
// Backoff timing comes from github.com/sethvargo/go-retry. Classification of
// go-redis errors lives here so every cache component treats them the same.
package retry
