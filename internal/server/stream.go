package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/timeline"
)

const writeWait = 10 * time.Second

// Stream message types
const (
	MessageDungeon = "dungeon" // Header sent once before any event
	MessageEvent   = "event"   // One trace event
	MessageDone    = "done"    // Every event has been sent
	MessageState   = "state"   // Playback state changed by a client command
)

// StreamMessage is one JSON frame on the /ws stream
type StreamMessage struct {
	Type    string           `json:"type"`
	Seq     int              `json:"seq,omitempty"`
	Event   *dungeon.Event   `json:"event,omitempty"`
	Dungeon *DungeonResponse `json:"dungeon,omitempty"`
	State   string           `json:"state,omitempty"`
	Events  int              `json:"events,omitempty"`
}

// handleWebSocketUpgrade generates the requested dungeon and streams its
// trace to the client.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if !s.limiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket stream rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many streams. Please try again later.", http.StatusTooManyRequests)
		return
	}
	defer s.limiter.Release(clientIP)

	req, err := s.parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.allow(w, r, req) {
		return
	}
	grid, res, id, err := s.generate(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), generationStatus(err))
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := logger.With("client_ip", clientIP, "seed", req.seed)
	log.Info("Stream started", "events", len(res.Trace))

	header := newDungeonResponse(id, req.seed, grid, res.Rooms, res.Doors, res.Trace, false)
	header.Layout = nil
	header.Atlas = nil
	st := &stream{
		conn:     conn,
		timeline: timeline.New(res.Trace, s.cfg.Server.RevealInterval),
		interval: s.cfg.Server.RevealInterval,
		shutdown: s.shutdown,
	}
	if err := st.run(header, s.cfg.Server.WebSocket.MaxMessageSize); err != nil {
		log.Info("Stream ended early", "sent", st.sent, "error", err)
		return
	}
	log.Info("Stream finished", "sent", st.sent)
}

// stream paces one trace over one connection. Only run writes to conn;
// readCommands is the single reader.
type stream struct {
	conn     *websocket.Conn
	timeline *timeline.Timeline
	interval time.Duration
	shutdown <-chan struct{}
	sent     int
}

func (st *stream) write(msg StreamMessage) error {
	st.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return st.conn.WriteJSON(msg)
}

func (st *stream) run(header *DungeonResponse, readLimit int64) error {
	if err := st.write(StreamMessage{Type: MessageDungeon, Dungeon: header}); err != nil {
		return err
	}

	commands := make(chan string, 8)
	go st.readCommands(readLimit, commands)

	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()
	last := time.Now()

	st.timeline.Start()
	for {
		if err := st.flush(); err != nil {
			return err
		}
		if st.timeline.State() == timeline.Finished {
			if err := st.write(StreamMessage{Type: MessageDone, Events: st.sent}); err != nil {
				return err
			}
			st.closeNormal("done")
			return nil
		}

		select {
		case <-st.shutdown:
			st.closeNormal("server shutting down")
			return errShutdown
		case cmd, ok := <-commands:
			if !ok {
				return errClientGone
			}
			if err := st.apply(cmd); err != nil {
				return err
			}
		case now := <-ticker.C:
			st.timeline.Update(now.Sub(last))
			last = now
		}
	}
}

// flush sends every event revealed since the last flush
func (st *stream) flush() error {
	visible := st.timeline.Visible()
	for ; st.sent < len(visible); st.sent++ {
		ev := visible[st.sent]
		if err := st.write(StreamMessage{Type: MessageEvent, Seq: st.sent, Event: &ev}); err != nil {
			return err
		}
	}
	return nil
}

// apply handles a client command: pause, resume or skip. Unknown commands
// are ignored.
func (st *stream) apply(cmd string) error {
	switch cmd {
	case "pause":
		st.timeline.Pause()
	case "resume":
		st.timeline.Start()
	case "skip":
		st.timeline.Skip()
	default:
		return nil
	}
	return st.write(StreamMessage{Type: MessageState, State: st.timeline.State().String()})
}

// readCommands forwards text frames as commands until the connection fails,
// then closes out.
func (st *stream) readCommands(readLimit int64, out chan<- string) {
	defer close(out)
	if readLimit > 0 {
		st.conn.SetReadLimit(readLimit)
	}
	for {
		_, message, err := st.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd := strings.ToLower(strings.TrimSpace(string(message)))
		if cmd == "" {
			continue
		}
		select {
		case out <- cmd:
		default:
			// Drop commands the stream has not caught up with.
		}
	}
}

func (st *stream) closeNormal(reason string) {
	st.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
}
