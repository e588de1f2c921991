// Package cache stores JSON values on disk with a time-to-live.
//
// It backs the climate projection cache: an external climate model can take
// seconds per run, while the dashboard revisits the same slider positions
// constantly. Entries are one JSON file per key under a single directory, so
// the cache survives restarts and can be shared between `fairdiet serve` and
// the dashboard.
package cache
