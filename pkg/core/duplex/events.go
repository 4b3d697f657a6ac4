package duplex

// Event is an inbound event from the duplex connection.
type Event interface {
	duplexEventType() string
}

// OpenedEvent signals that the connection finished setup and is live.
type OpenedEvent struct{}

func (OpenedEvent) duplexEventType() string { return "opened" }

// AudioEvent carries one decoded chunk of synthesized PCM audio.
type AudioEvent struct {
	Data     []byte
	MIMEType string
}

func (AudioEvent) duplexEventType() string { return "audio" }

// InputTranscriptionEvent carries the cloud's transcription of inbound audio.
type InputTranscriptionEvent struct {
	Text string
}

func (InputTranscriptionEvent) duplexEventType() string { return "input_transcription" }

// OutputTranscriptionEvent carries the transcription of the model's own
// spoken output.
type OutputTranscriptionEvent struct {
	Text string
}

func (OutputTranscriptionEvent) duplexEventType() string { return "output_transcription" }

// TextEvent carries text found in the model turn's structured parts. Emitted
// only when the message has no dedicated output transcription field.
type TextEvent struct {
	Text string
}

func (TextEvent) duplexEventType() string { return "text" }

// TurnCompleteEvent marks the end of a model turn.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) duplexEventType() string { return "turn_complete" }

// InterruptedEvent signals that the model's turn was cut short upstream.
type InterruptedEvent struct{}

func (InterruptedEvent) duplexEventType() string { return "interrupted" }

// GoAwayEvent signals that the server will close the connection shortly.
type GoAwayEvent struct{}

func (GoAwayEvent) duplexEventType() string { return "go_away" }

// ClosedEvent is the terminal event. Err is nil on a clean close.
type ClosedEvent struct {
	Err error
}

func (ClosedEvent) duplexEventType() string { return "closed" }
