package tui

import "threadterm/internal/workflow"

// Async message types for Bubble Tea commands. Each carries the workflow
// result so the view can decide whether it is still current.

type loadedMsg struct {
	res workflow.LoadResult
}

type suggestedMsg struct {
	res workflow.SuggestResult
}

type confirmedMsg struct {
	res workflow.ConfirmResult
}

type statusMsg struct {
	seq int
}
