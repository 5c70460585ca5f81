package tui

import "github.com/ayusman/repcoach/internal/app"

// SnapshotMsg delivers a new coaching status.
type SnapshotMsg app.Snapshot

// ActionMsg reports the outcome of a control action.
type ActionMsg struct {
	Action string
	Err    error
}

// ClosedMsg signals that the coach stopped publishing.
type ClosedMsg struct{}
