package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voceware/livetranslate/pkg/core/audio"
)

// StreamingConfig describes a websocket speech-to-text session.
type StreamingConfig struct {
	// Endpoint is the websocket URL of the recognition service.
	Endpoint string

	// APIKey authenticates the session.
	APIKey string

	// Model selects the recognition model. Optional.
	Model string

	// Language is a BCP-47 tag, for example "en-US". Optional.
	Language string

	// SampleRate of the PCM audio that will be sent. Defaults to the
	// capture rate.
	SampleRate int
}

// StreamingClient is a websocket Recognizer. Each Start dials a fresh
// session; the Events channel persists across sessions and closes only
// on Stop.
type StreamingClient struct {
	cfg StreamingConfig

	events chan Event

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped bool
}

// NewStreamingClient builds a client. It does not connect until Start.
func NewStreamingClient(cfg StreamingConfig) *StreamingClient {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.CaptureRate
	}
	return &StreamingClient{
		cfg:    cfg,
		events: make(chan Event, 64),
	}
}

// Start dials a new recognition session. It may be called again after an
// EndedEvent.
func (c *StreamingClient) Start(ctx context.Context) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return fmt.Errorf("recognize: client is stopped")
	}
	if c.cfg.Endpoint == "" {
		return fmt.Errorf("recognize: endpoint is required")
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("recognize: parse endpoint: %w", err)
	}
	q := u.Query()
	if c.cfg.Model != "" {
		q.Set("model", c.cfg.Model)
	}
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
	q.Set("encoding", "pcm_s16le")
	q.Set("sample_rate", fmt.Sprintf("%d", c.cfg.SampleRate))
	u.RawQuery = q.Encode()

	headers := http.Header{}
	if c.cfg.APIKey != "" {
		headers.Set("X-API-Key", c.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("recognize: connect (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("recognize: connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Stop ends the session permanently and closes Events.
func (c *StreamingClient) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	conn := c.conn
	c.conn = nil
	close(c.events)
	c.mu.Unlock()
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
}

// SendAudio streams one PCM frame as a binary message.
func (c *StreamingClient) SendAudio(pcm []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("recognize: no active session")
	}
	return conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// Events yields recognition events across sessions.
func (c *StreamingClient) Events() <-chan Event {
	return c.events
}

type serverMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func (c *StreamingClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.endSession(conn)
			return
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "transcript":
			c.emit(ResultEvent{Text: msg.Text, Final: msg.IsFinal})
		case "error":
			c.emit(ErrorEvent{Code: msg.Code, Message: msg.Error})
		case "done":
			c.endSession(conn)
			return
		}
	}
}

// endSession tears down one websocket and reports that the engine ended,
// unless Stop already closed the client.
func (c *StreamingClient) endSession(conn *websocket.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.emit(EndedEvent{})
}

func (c *StreamingClient) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	select {
	case c.events <- ev:
	default:
	}
}
