// Package services implements the external collaborators used by moodmix.
//
// # Catalog
//
// [SpotifyCatalog] implements [Catalog] over github.com/zmb3/spotify/v2. Searches return
// [models.Candidate] values with popularity so callers can rank them; playlist writes go
// to the linked account.
//
// # Credentials
//
// [TokenManager] is the single owner of the Spotify access token, refresh token and expiry.
// It implements [oauth2.TokenSource], serializes refreshes behind a mutex and persists the
// refreshed triple through a [TokenStore]. [TokenManager.Do] retries a privileged call exactly
// once after forcing a refresh when Spotify answers 401.
//
// # Chat model
//
// [ChatClient] speaks the OpenAI-compatible chat completions protocol (OpenRouter by default).
// [ChatClient.StartSession] returns a [ChatSession] holding the transcript; every turn sends
// the full transcript.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : client id/secret or API key not configured
//   - [shared.ErrReauthRequired] : no linked account, or refresh failed
//   - [shared.ErrAPIRequest] : the upstream call failed
package services
