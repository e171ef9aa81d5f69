package messages

import "mdpress/internal/transfer"

// StateMsg reports a conversion state change.
type StateMsg struct {
	State transfer.State
}

// DoneMsg ends a conversion. Location is where the artifact was saved.
type DoneMsg struct {
	Location string
	Err      error
}
