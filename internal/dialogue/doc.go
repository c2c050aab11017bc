// Package dialogue runs the per-user mood conversation.
//
// A session moves NEW -> ACTIVE -> READY_FOR_EXTRACTION -> CLOSED. The first message for an
// unknown user key opens a chat seeded with [SystemPrompt]. Every message is forwarded verbatim
// and the reply returned unmodified. Once the turn counter reaches the threshold, each reply is
// scanned with [ExtractPayload]; a valid payload closes the session and removes it from the
// store, anything else leaves it open and extraction runs again on the next reply.
package dialogue
