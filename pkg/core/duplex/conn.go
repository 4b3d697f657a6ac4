package duplex

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultEndpoint is the bidirectional generate-content websocket host.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the live model used when Config.Model is empty.
	DefaultModel = "models/gemini-2.0-flash-live-001"

	// DefaultVoice is the prebuilt voice used when Config.Voice is empty.
	DefaultVoice = "Puck"

	defaultDialTimeout = 15 * time.Second
)

// Config describes one duplex session.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Voice       string
	Instruction string
}

// Connection is the send/receive surface of an open duplex session.
// Dial returns a *Conn; the interface exists so the session layer can be
// driven by a scripted fake in tests.
type Connection interface {
	Events() <-chan Event
	SendRealtimeAudio(pcm []byte, mimeType string) error
	SendText(text string) error
	Close() error
}

// DialFunc opens a duplex connection. It matches Dial.
type DialFunc func(ctx context.Context, cfg Config) (Connection, error)

// Conn is a live duplex websocket session. Dial performs the setup
// handshake before returning, so a non-nil Conn is ready to send.
type Conn struct {
	conn *websocket.Conn
	log  *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// Dial connects, sends the setup frame, and waits for setup completion.
func Dial(ctx context.Context, cfg Config) (Connection, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("duplex: api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	wsURL := endpoint + "?key=" + url.QueryEscape(cfg.APIKey)

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("duplex: dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("duplex: dial failed: %w", err)
	}

	setup := setupFrame{Setup: setupPayload{
		Model: model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}}
	if cfg.Instruction != "" {
		setup.Setup.SystemInstruction = &contentPayload{
			Parts: []partPayload{{Text: cfg.Instruction}},
		}
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("duplex: send setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultDialTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("duplex: read setup ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	firstEvents, err := decodeServerFrame(payload)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	opened := false
	for _, e := range firstEvents {
		if _, ok := e.(OpenedEvent); ok {
			opened = true
		}
	}
	if !opened {
		_ = conn.Close()
		return nil, fmt.Errorf("duplex: unexpected first frame, no setup completion")
	}

	c := &Conn{
		conn:   conn,
		log:    slog.Default(),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	// Surface the open event to consumers too.
	c.events <- OpenedEvent{}
	go c.readLoop()
	return c, nil
}

// Events yields decoded session events. The channel closes after a
// ClosedEvent when the connection ends; consumers must drain it until
// then so the terminal event can be delivered.
func (c *Conn) Events() <-chan Event {
	if c == nil {
		return nil
	}
	return c.events
}

// SendRealtimeAudio streams one PCM frame as a realtime media chunk.
func (c *Conn) SendRealtimeAudio(pcm []byte, mimeType string) error {
	if c == nil {
		return fmt.Errorf("duplex: connection must not be nil")
	}
	frame := realtimeInputFrame{RealtimeInput: realtimeInputPayload{
		MediaChunks: []blobPayload{{
			MIMEType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(pcm),
		}},
	}}
	return c.sendJSON(frame)
}

// SendText submits one user text turn and marks it complete.
func (c *Conn) SendText(text string) error {
	if c == nil {
		return fmt.Errorf("duplex: connection must not be nil")
	}
	frame := clientContentFrame{ClientContent: clientContentPayload{
		Turns: []contentPayload{{
			Role:  "user",
			Parts: []partPayload{{Text: text}},
		}},
		TurnComplete: true,
	}}
	return c.sendJSON(frame)
}

func (c *Conn) sendJSON(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("duplex: connection is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close closes the websocket and waits for the read loop to drain.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				// Terminal: never shed, the consumer drains until close.
				c.events <- ClosedEvent{}
				return
			}
			c.events <- ClosedEvent{Err: err}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		events, err := decodeServerFrame(data)
		if err != nil {
			// Only the bad chunks were dropped; emit what decoded.
			c.log.Warn("duplex: dropped undecodable content", "error", err)
		}
		for _, e := range events {
			c.emit(e)
		}
	}
}

func (c *Conn) emit(event Event) {
	select {
	case c.events <- event:
	default:
		// Shed data events rather than stall the read loop.
	}
}
