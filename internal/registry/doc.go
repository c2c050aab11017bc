// Package registry holds the process state shared across requests: live dialogue sessions,
// the raw-string to URI resolution cache and the set of claimed catalog URIs.
//
// Every store is an injected object rather than a package global. Bounds are optional:
// a zero size cap or TTL keeps entries for the life of the process.
//
// Implementations:
//   - [SessionStore] : in-memory, keyed by user, idle TTL plus size cap
//   - [MemoryRegistry] : in-memory [TrackRegistry]
//   - [RedisRegistry] : [TrackRegistry] backed by Redis, claims via SETNX so several
//     processes share one claimed-URI set
package registry
