package duplex

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire frames for the bidirectional generate-content websocket protocol.
// Outbound frames are one-field envelopes; inbound frames are a tagged union
// decoded field by field in a fixed priority order.

type setupFrame struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *contentPayload  `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type contentPayload struct {
	Role  string        `json:"role,omitempty"`
	Parts []partPayload `json:"parts"`
}

type partPayload struct {
	Text       string       `json:"text,omitempty"`
	InlineData *blobPayload `json:"inlineData,omitempty"`
}

type blobPayload struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientContentFrame struct {
	ClientContent clientContentPayload `json:"clientContent"`
}

type clientContentPayload struct {
	Turns        []contentPayload `json:"turns"`
	TurnComplete bool             `json:"turnComplete"`
}

type realtimeInputFrame struct {
	RealtimeInput realtimeInputPayload `json:"realtimeInput"`
}

type realtimeInputPayload struct {
	MediaChunks []blobPayload `json:"mediaChunks"`
}

type serverFrame struct {
	SetupComplete *struct{}           `json:"setupComplete,omitempty"`
	ServerContent *serverContentFrame `json:"serverContent,omitempty"`
	GoAway        *struct{}           `json:"goAway,omitempty"`
}

type serverContentFrame struct {
	ModelTurn           *contentPayload     `json:"modelTurn,omitempty"`
	InputTranscription  *transcriptionFrame `json:"inputTranscription,omitempty"`
	OutputTranscription *transcriptionFrame `json:"outputTranscription,omitempty"`
	TurnComplete        bool                `json:"turnComplete,omitempty"`
	Interrupted         bool                `json:"interrupted,omitempty"`
}

type transcriptionFrame struct {
	Text string `json:"text"`
}

// decodeServerFrame turns one inbound frame into zero or more events, in a
// fixed order: setup completion, go-away, audio parts, input transcription,
// then output transcription with the model-turn text parts as an explicit
// ordered fallback, then turn boundaries. A bad audio part is skipped and
// reported through the returned error; the rest of the frame still decodes.
func decodeServerFrame(data []byte) ([]Event, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}

	var events []Event
	var decodeErr error
	if frame.SetupComplete != nil {
		events = append(events, OpenedEvent{})
	}
	if frame.GoAway != nil {
		events = append(events, GoAwayEvent{})
	}

	sc := frame.ServerContent
	if sc == nil {
		return events, nil
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				decodeErr = errors.Join(decodeErr, fmt.Errorf("decode audio part: %w", err))
				continue
			}
			events = append(events, AudioEvent{Data: pcm, MIMEType: part.InlineData.MIMEType})
		}
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, InputTranscriptionEvent{Text: sc.InputTranscription.Text})
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, OutputTranscriptionEvent{Text: sc.OutputTranscription.Text})
	} else if sc.ModelTurn != nil {
		// No dedicated transcription field: fall back to the turn's text parts.
		for _, part := range sc.ModelTurn.Parts {
			if part.Text != "" {
				events = append(events, TextEvent{Text: part.Text})
			}
		}
	}

	if sc.Interrupted {
		events = append(events, InterruptedEvent{})
	}
	if sc.TurnComplete {
		events = append(events, TurnCompleteEvent{})
	}
	return events, decodeErr
}
