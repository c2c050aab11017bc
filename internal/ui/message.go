package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgChatReply MsgKind = iota
	MsgProgressUpdate
)

type chatReply struct {
	response *tasks.ChatResponse
	err      error
}

// chatReplyMsg is the constructor for [MsgChatReply]
func chatReplyMsg(response *tasks.ChatResponse, err error) Msg {
	return Msg{kind: MsgChatReply, data: chatReply{response: response, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}
