// Package tasks resolves mood suggestions into a Spotify playlist with real-time progress reporting.
//
// # Core Operations
//
// The [MoodEngine] interface defines three operations:
//
//  1. [MoodEngine.Chat] : One conversation turn
//     - Forwards the message to the dialogue engine
//     - Returns the model's reply while the conversation continues
//     - Assembles a playlist from the payload once the turn threshold is reached
//
//  2. [MoodEngine.CreatePlaylist] : Direct assembly from a mood and raw track strings
//
//  3. [MoodEngine.Resolve] : Map a single "Title - Artist" string to a catalog URI
//
// # Resolution
//
// [Resolver] tries a fixed list of search strategies from most to least specific (see
// [Strategies]), sorts each batch of candidates by popularity and accepts the first loose
// title/artist match whose URI it can claim in the registry. Searches share a rate limiter.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [PlaylistRecorder] interface stores created playlists (repositories.PlaylistRepository).
// Recording failures are logged and never fail an assembly.
package tasks
