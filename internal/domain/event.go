package domain

// ChangeType names what happened to a help request.
type ChangeType string

const (
	ChangeSnapshot   ChangeType = "snapshot" // sent on subscribe
	ChangeCreated    ChangeType = "created"
	ChangeResolved   ChangeType = "resolved"
	ChangeUnresolved ChangeType = "unresolved"
	ChangeArchived   ChangeType = "archived"
	ChangeAudio      ChangeType = "audio_attached"
)

// ChangeEvent is one message on the change stream. Request is the full
// record as of the change.
type ChangeEvent struct {
	Type    ChangeType   `json:"type"`
	Request *HelpRequest `json:"request"`
}
