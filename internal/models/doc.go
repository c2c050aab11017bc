// Package models defines the domain entities for the moodmix playlist service.
//
// The package contains two categories of types:
//
// 1. Value types passed between the dialogue, resolution and assembly stages
//   - [TrackQuery] : a raw "title - artist" suggestion split into its parts
//   - [Candidate] : one catalog search hit with popularity
//   - [ResolvedTrack] : a catalog URI bound to the raw string that produced it
//   - [MoodPayload] : the mood label and ten suggestions extracted from the model reply
//   - [PlaylistResult] : the outcome of assembling a playlist
//
// 2. Persistent Entities: database-backed records implementing [Model]
//   - [PlaylistRecord] : history of playlists created from a mood
package models
