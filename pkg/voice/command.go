// Package voice listens for spoken commands and drives the control signal.
package voice

import "strings"

// Command is a recognized voice command.
type Command int

const (
	CommandNone Command = iota
	CommandStart
	CommandStop
	CommandCalibrate
)

// Phrase fragments matched against the transcription, in priority order.
const (
	PhraseStart     = "start detection"
	PhraseStop      = "stop detection"
	PhraseCalibrate = "calibrate"
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandCalibrate:
		return "calibrate"
	default:
		return "none"
	}
}

// ParseCommand finds the first matching fragment in text. Start is checked
// before stop, and stop before calibrate.
func ParseCommand(text string) Command {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, PhraseStart):
		return CommandStart
	case strings.Contains(t, PhraseStop):
		return CommandStop
	case strings.Contains(t, PhraseCalibrate):
		return CommandCalibrate
	}
	return CommandNone
}
