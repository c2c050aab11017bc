// Package repositories implements SQLite persistence for moodmix.
//
// Key Implementations:
//   - [TokenRepository] : The linked Spotify credential triple, satisfying services.TokenStore
//   - [PlaylistRepository] : History of playlists created from a mood, satisfying tasks.PlaylistRecorder
//
// History rows are soft deleted via deleted_at and excluded from queries by default.
// Sequence numbers provide stable, human-readable ordering (e.g., playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
