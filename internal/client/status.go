package client

import (
	"strings"

	"github.com/yoockh/voicerelay/internal/utils"
)

type State int

const (
	StateIdle State = iota
	StateCapturing
)

func (s State) String() string {
	if s == StateCapturing {
		return "capturing"
	}
	return "idle"
}

// Mode selects the single transcription source that runs next to the
// visualiser.
type Mode int

const (
	ModeNone Mode = iota
	ModeNative
	ModeRelay
)

func (m Mode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeRelay:
		return "relay"
	default:
		return "none"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native":
		return ModeNative, nil
	case "relay":
		return ModeRelay, nil
	case "none", "off":
		return ModeNone, nil
	default:
		return ModeNone, utils.E(utils.CodeInvalidArgument, "client.ParseMode", "unknown mode "+s, nil)
	}
}

type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusConnectionError
	StatusRecognitionError
	StatusUnsupported
	StatusDisconnected
)

const (
	colorPending = "#f39c12"
	colorOK      = "#27ae60"
	colorError   = "#e74c3c"
	colorMuted   = "#95a5a6"
)

func (s Status) Text() string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected & Listening"
	case StatusConnectionError:
		return "Connection Error"
	case StatusRecognitionError:
		return "Recognition Error"
	case StatusUnsupported:
		return "Speech recognition not supported"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Ready"
	}
}

// Color is the hex colour the status is shown in.
func (s Status) Color() string {
	switch s {
	case StatusConnecting:
		return colorPending
	case StatusConnected:
		return colorOK
	case StatusConnectionError, StatusRecognitionError, StatusUnsupported:
		return colorError
	default:
		return colorMuted
	}
}

func (s Status) String() string { return s.Text() }
