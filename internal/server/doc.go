// Package server exposes moodmix over HTTP and completes the Spotify OAuth flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [ChiRouter] implements it on a chi mux; [DefaultMiddleware] adds request ids, request logging
// through charmbracelet/log, panic recovery and a per-request timeout.
//
// # Endpoints
//
//	GET    /health            liveness
//	POST   /api/chat          {"user_id","message"} -> continue | playlist_created
//	POST   /api/playlists     {"mood","tracks"} (at most 10) -> PlaylistResult
//	GET    /api/history       history, newest first (?limit=, ?mood=)
//	GET    /api/history/{id}  one entry by record id or Spotify playlist id
//	DELETE /api/history/{id}  remove an entry; the Spotify playlist is kept
//	GET    /auth/login        302 to Spotify
//	GET    /callback          code exchange, tokens persisted by the token manager
//
// Chat and playlist creation require a linked Spotify account and answer 401
// {"error":"spotify authorization required"} otherwise. Errors are mapped by [StatusFor]
// to fixed messages; internal error text is only logged.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates single-use state tokens (CSRF protection), exchanges the authorization
// code and publishes the outcome on [OAuthHandler.Result] for the CLI auth command.
package server
