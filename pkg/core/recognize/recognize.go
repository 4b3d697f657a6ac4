package recognize

import "context"

// Event is emitted by a Recognizer over its Events channel.
type Event interface {
	recognizeEventType() string
}

// ResultEvent carries one recognition hypothesis. Interim results may be
// revised; a final result is stable.
type ResultEvent struct {
	Text  string
	Final bool
}

func (e ResultEvent) recognizeEventType() string { return "result" }

// ErrorEvent reports a recognizer fault. Code mirrors the engine's error
// identifier, for example "not-allowed" or "network".
type ErrorEvent struct {
	Code    string
	Message string
}

func (e ErrorEvent) recognizeEventType() string { return "error" }

// EndedEvent signals that the engine stopped listening on its own, which
// recognizers commonly do after silence.
type EndedEvent struct{}

func (e EndedEvent) recognizeEventType() string { return "ended" }

// Recognizer is a restartable speech-to-text engine. Start may be called
// again after an EndedEvent. Events closes when Stop is called.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop()
	SendAudio(pcm []byte) error
	Events() <-chan Event
}
