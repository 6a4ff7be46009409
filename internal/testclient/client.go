package testclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/server"
)

// TestClient represents a test client watching one dungeon stream
type TestClient struct {
	Name     string
	conn     *websocket.Conn
	messages []server.StreamMessage
	mu       sync.Mutex
	writeMu  sync.Mutex
	done     chan struct{}
	finished chan struct{}
	readErr  error
}

// NewTestClient opens a reveal stream on the server at address (host:port).
// query is passed through to /ws, e.g. "seed=42&width=64".
func NewTestClient(name, address, query string) (*TestClient, error) {
	u := url.URL{Scheme: "ws", Host: address, Path: "/ws", RawQuery: query}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name:     name,
		conn:     conn,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	// Start reading messages in background
	go client.readMessages()

	return client, nil
}

// readMessages continuously reads frames until the server closes the stream
func (c *TestClient) readMessages() {
	defer close(c.finished)
	for {
		var msg server.StreamMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		c.mu.Unlock()
	}
}

// SendCommand sends a playback command: pause, resume or skip
func (c *TestClient) SendCommand(cmd string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(cmd))
}

// GetMessages returns all messages received so far
func (c *TestClient) GetMessages() []server.StreamMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]server.StreamMessage, len(c.messages))
	copy(result, c.messages)
	return result
}

// ClearMessages clears the message buffer
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// WaitForMessage waits for a message of the given type (with timeout)
func (c *TestClient) WaitForMessage(msgType string, timeout time.Duration) (server.StreamMessage, bool) {
	return c.waitFor(func(msg server.StreamMessage) bool { return msg.Type == msgType }, timeout)
}

// WaitForState waits for a state message reporting the given playback state
func (c *TestClient) WaitForState(state string, timeout time.Duration) bool {
	_, ok := c.waitFor(func(msg server.StreamMessage) bool {
		return msg.Type == server.MessageState && msg.State == state
	}, timeout)
	return ok
}

func (c *TestClient) waitFor(match func(server.StreamMessage) bool, timeout time.Duration) (server.StreamMessage, bool) {
	deadline := time.Now().Add(timeout)

	for {
		for _, msg := range c.GetMessages() {
			if match(msg) {
				return msg, true
			}
		}
		if !time.Now().Before(deadline) {
			return server.StreamMessage{}, false
		}
		select {
		case <-c.finished:
			// One last look: the reader may have stored the frame just
			// before exiting.
			for _, msg := range c.GetMessages() {
				if match(msg) {
					return msg, true
				}
			}
			return server.StreamMessage{}, false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Header returns the dungeon header sent when the stream opened
func (c *TestClient) Header() *server.DungeonResponse {
	for _, msg := range c.GetMessages() {
		if msg.Type == server.MessageDungeon {
			return msg.Dungeon
		}
	}
	return nil
}

// Events returns the trace events received so far, in stream order
func (c *TestClient) Events() dungeon.Trace {
	var trace dungeon.Trace
	for _, msg := range c.GetMessages() {
		if msg.Type == server.MessageEvent && msg.Event != nil {
			trace = append(trace, *msg.Event)
		}
	}
	return trace
}

// Replay applies the received events to an empty grid of the header's size
func (c *TestClient) Replay() (*dungeon.Grid, error) {
	header := c.Header()
	if header == nil {
		return nil, fmt.Errorf("no dungeon header received")
	}
	return c.Events().Replay(header.Width, header.Height)
}

// Err returns the error that ended the stream, if it has ended
func (c *TestClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close closes the client connection
func (c *TestClient) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

// PrintMessages prints all messages (for debugging)
func (c *TestClient) PrintMessages() {
	messages := c.GetMessages()
	fmt.Printf("\n=== Messages for %s ===\n", c.Name)
	for i, msg := range messages {
		fmt.Printf("[%d] %s seq=%d state=%s\n", i, msg.Type, msg.Seq, msg.State)
	}
	fmt.Println("======================")
}

// GetDungeon fetches a dungeon over plain HTTP. path is "/dungeon" or
// "/dungeons/{id}". The status code is returned alongside any body.
func GetDungeon(address, path, query string) (*server.DungeonResponse, int, error) {
	u := url.URL{Scheme: "http", Host: address, Path: path, RawQuery: query}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	resp, err := httpClient.Get(u.String())
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	var body server.DungeonResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode dungeon: %w", err)
	}
	return &body, resp.StatusCode, nil
}
