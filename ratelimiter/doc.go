// Package ratelimiter implements per-key fixed-window request limiting with
// layered policy resolution.
//
// The three pieces fit together like this:
//
//   - Resolve computes the Effective (capacity, window) for a route from its
//     route-level override, its group-level override and the global default.
//   - Registry hands out exactly one Counter per (operation, client) key.
//   - Counter answers allow/deny for that key, lock-free, resetting itself
//     when its window elapses.
//
// The package knows nothing about HTTP. The middleware package wires it into
// a request pipeline.
package ratelimiter
