// Package plan resolves a capture source and language pair into the mode,
// system instruction, and audio routing policy for a session.
package plan

import "fmt"

// SourceKind selects where session audio comes from.
type SourceKind int

const (
	// SourceMicrophone captures from a microphone device.
	SourceMicrophone SourceKind = iota
	// SourceSystemAudio captures system/loopback audio.
	SourceSystemAudio
)

func (k SourceKind) String() string {
	switch k {
	case SourceMicrophone:
		return "microphone"
	case SourceSystemAudio:
		return "system-audio"
	default:
		return "unknown"
	}
}

// Source identifies the capture source for a session. Chosen once per
// session and immutable for its lifetime.
type Source struct {
	Kind SourceKind

	// DeviceID selects a specific microphone. Empty or "default" means the
	// system default device. Ignored for system audio.
	DeviceID string
}

// Microphone returns a microphone source for the given device id.
func Microphone(deviceID string) Source {
	if deviceID == "default" {
		deviceID = ""
	}
	return Source{Kind: SourceMicrophone, DeviceID: deviceID}
}

// SystemAudio returns a system/loopback audio source.
func SystemAudio() Source {
	return Source{Kind: SourceSystemAudio}
}

// LanguagePair holds the input and output language selection.
// Input may be "auto"; Output may be "none" to disable translation.
type LanguagePair struct {
	Input  string
	Output string
}

// TranslationActive reports whether an output translation is requested:
// the output language is set, is not "none", and differs from the input.
func (p LanguagePair) TranslationActive() bool {
	switch p.Output {
	case "", "none":
		return false
	}
	return p.Output != p.Input
}

// Mode determines the system instruction content and audio routing policy.
type Mode int

const (
	// ModeMicTranslate transcribes microphone speech locally and has the
	// cloud session speak supplied translations verbatim.
	ModeMicTranslate Mode = iota
	// ModeSystemTranslate streams system audio to the cloud session, which
	// translates and speaks it.
	ModeSystemTranslate
	// ModeTranscribeOnly streams audio to the cloud session for faithful
	// transcription without translation.
	ModeTranscribeOnly
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeMicTranslate:
		return "MIC_TRANSLATE"
	case ModeSystemTranslate:
		return "SYSTEM_TRANSLATE"
	case ModeTranscribeOnly:
		return "TRANSCRIBE_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Plan is the resolved session plan. It is computed once at session start
// and never mutated; the one runtime-dependent decision (microphone fallback
// routing) is exposed through EffectiveStreamAudio instead of a mutable flag.
type Plan struct {
	Mode Mode

	// Instruction is the system instruction text for the cloud session.
	Instruction string

	// StreamAudioToCloud is the static audio routing policy. For
	// ModeMicTranslate it is false and may be overridden at connection-open
	// time via EffectiveStreamAudio.
	StreamAudioToCloud bool

	// Languages is the pair the plan was resolved from.
	Languages LanguagePair
}

// Resolve computes the session plan. It is a pure function with no failure
// cases: unresolvable language codes are passed through verbatim.
func Resolve(src Source, langs LanguagePair) Plan {
	switch {
	case src.Kind == SourceMicrophone && langs.TranslationActive():
		return Plan{
			Mode: ModeMicTranslate,
			Instruction: fmt.Sprintf(
				"You are a text-to-speech engine. When you receive text, read it aloud verbatim in %s. "+
					"Do not translate it, do not answer it, and do not add any commentary.",
				DisplayName(langs.Output)),
			StreamAudioToCloud: false,
			Languages:          langs,
		}
	case src.Kind == SourceSystemAudio && langs.TranslationActive():
		return Plan{
			Mode: ModeSystemTranslate,
			Instruction: fmt.Sprintf(
				"Listen to the incoming audio and translate everything you hear into %s. "+
					"Speak only the translation. Do not comment on the audio and do not interact with the speaker.",
				DisplayName(langs.Output)),
			StreamAudioToCloud: true,
			Languages:          langs,
		}
	default:
		return Plan{
			Mode: ModeTranscribeOnly,
			Instruction: "Transcribe the incoming audio faithfully. Do not invent words during silence. " +
				"Do not speak unless a brief clarification is strictly necessary.",
			StreamAudioToCloud: true,
			Languages:          langs,
		}
	}
}

// EffectiveStreamAudio is the routing decision evaluated at the moment the
// duplex connection opens. In microphone translation mode the session streams
// raw audio to the cloud only when local recognition failed to start; in all
// other modes the static policy applies.
func (p Plan) EffectiveStreamAudio(recognizerActive bool) bool {
	if p.Mode == ModeMicTranslate {
		return !recognizerActive
	}
	return p.StreamAudioToCloud
}

// displayNames maps common language codes to the names used in instruction
// and translation prompts. Unknown codes pass through verbatim.
var displayNames = map[string]string{
	"ar":    "Arabic",
	"de":    "German",
	"en":    "English",
	"en-US": "English",
	"en-GB": "English",
	"es":    "Spanish",
	"fr":    "French",
	"hi":    "Hindi",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"nl":    "Dutch",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
	"zh":    "Chinese",
}

// DisplayName returns the human-readable name for a language code, or the
// code itself when unknown.
func DisplayName(code string) string {
	if name, ok := displayNames[code]; ok {
		return name
	}
	return code
}
