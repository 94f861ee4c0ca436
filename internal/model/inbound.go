package model

// InboundKind classifies a transport-neutral inbound event
type InboundKind string

const (
	InboundCommand InboundKind = "command"
	InboundButton  InboundKind = "button"
	InboundText    InboundKind = "text"
)

// CommandStart restarts the questionnaire
const CommandStart = "start"

// InboundEvent is one message or button press from a respondent
type InboundEvent struct {
	Kind         InboundKind
	RespondentID RespondentID
	Command      string // Without the leading slash
	Payload      string // Button payload
	Text         string
}
