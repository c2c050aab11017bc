// Package ui implements an interactive mood chat using bubbletea's Elm architecture.
//
// The TUI moves through three views:
//  1. [ChatView] : converse with the model about how you feel
//  2. [BuildingView] : follow track resolution and playlist creation
//  3. [ResultView] : browse the tracks that made it into the playlist
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Each turn runs the [tasks.MoodEngine] in a goroutine; progress updates flow through a channel and are
// read back one command at a time so rendering never blocks.
package ui
