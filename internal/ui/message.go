package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vcms/internal/tasks"
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
	MsgRefresh MsgKind = iota
	MsgCategoriesOpened
	MsgCategoryCreated
	MsgProgressUpdate
	MsgPublishComplete
)

// refreshMsg is the constructor for [MsgRefresh], sent when any observed state changed.
func refreshMsg() Msg {
	return Msg{kind: MsgRefresh}
}

// categoriesOpenedMsg is the constructor for [MsgCategoriesOpened]
func categoriesOpenedMsg(err error) Msg {
	return Msg{kind: MsgCategoriesOpened, data: err}
}

// categoryCreatedMsg is the constructor for [MsgCategoryCreated]
func categoryCreatedMsg(err error) Msg {
	return Msg{kind: MsgCategoryCreated, data: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

type publishOutcome struct {
	result *tasks.PublishResult
	err    error
}

// publishCompleteMsg is the constructor for [MsgPublishComplete]
func publishCompleteMsg(result *tasks.PublishResult, err error) Msg {
	return Msg{kind: MsgPublishComplete, data: publishOutcome{result, err}}
}

func (m Msg) err() error {
	err, _ := m.data.(error)
	return err
}
