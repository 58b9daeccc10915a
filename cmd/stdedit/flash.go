package main

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

const (
	flashPhase    = 125 // milliseconds per phase
	flashDuration = 4 * flashPhase
)

// flashes reports whether a message of type t blinks when shown.
func flashes(t MessageType) bool {
	switch t {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	}
	return false
}

// flashInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it appeared: normal, inverted, normal,
// inverted, then normal for good.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashDuration {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}
