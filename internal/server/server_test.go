package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeonmaker/internal/antispam"
	"github.com/lawnchairsociety/dungeonmaker/internal/config"
	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Dungeon.Width = 48
	cfg.Dungeon.Height = 48
	cfg.Server.RevealInterval = 200 * time.Microsecond
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, withStore bool) (*Server, *httptest.Server) {
	t.Helper()
	var st Store
	if withStore {
		db, err := store.Open(context.Background(), store.DefaultConfig(filepath.Join(t.TempDir(), "dungeons.db")))
		if err != nil {
			t.Fatalf("Failed to open store: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		st = db
	}
	s := New(cfg, st)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getDungeon(t *testing.T, url string) *DungeonResponse {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	var body DungeonResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &body
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
}

func TestGetDungeon(t *testing.T) {
	cfg := testConfig()
	_, ts := newTestServer(t, cfg, false)

	body := getDungeon(t, ts.URL+"/dungeon?seed=5")

	grid, _ := dungeon.NewGrid(48, 48)
	res, err := dungeon.NewGenerator(cfg.Dungeon.Rules(), dungeon.NewSource(5)).Generate(grid)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if body.Seed != 5 || body.Width != 48 || body.Height != 48 {
		t.Errorf("header = seed %d %dx%d", body.Seed, body.Width, body.Height)
	}
	if body.Fingerprint != dungeon.Fingerprint(grid, res.Trace) {
		t.Error("served dungeon differs from a local run with the same seed")
	}
	if len(body.Layout) != 48 || len(body.Atlas) != 48*48 {
		t.Errorf("layout rows = %d, atlas = %d", len(body.Layout), len(body.Atlas))
	}
	if body.Events != len(res.Trace) {
		t.Errorf("events = %d, want %d", body.Events, len(res.Trace))
	}
	if len(body.Trace) != 0 {
		t.Error("trace included without trace=1")
	}
	if body.ID != 0 {
		t.Errorf("id = %d without a store", body.ID)
	}
}

func TestGetDungeonWithTraceAndSize(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), false)

	body := getDungeon(t, ts.URL+"/dungeon?seed=8&width=60&height=40&trace=1")
	if body.Width != 60 || body.Height != 40 {
		t.Errorf("size = %dx%d, want 60x40", body.Width, body.Height)
	}
	if len(body.Trace) != body.Events {
		t.Errorf("trace has %d events, header says %d", len(body.Trace), body.Events)
	}
}

func TestGetDungeonBadRequests(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), false)

	tests := []struct {
		query  string
		status int
	}{
		{"seed=abc", http.StatusBadRequest},
		{"seed=1&width=0", http.StatusBadRequest},
		{"seed=1&height=100000", http.StatusBadRequest},
		{"seed=1&width=8&height=8", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		resp, err := http.Get(ts.URL + "/dungeon?" + tt.query)
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("GET /dungeon?%s status = %d, want %d", tt.query, resp.StatusCode, tt.status)
		}
	}
}

func TestGetDungeonThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AntiSpam = antispam.Config{Enabled: true, MaxRequests: 2, TimeWindow: time.Minute}
	_, ts := newTestServer(t, cfg, false)

	for i := 1; i <= 3; i++ {
		resp, err := http.Get(fmt.Sprintf("%s/dungeon?seed=%d", ts.URL, i))
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()

		want := http.StatusOK
		if i == 3 {
			want = http.StatusTooManyRequests
		}
		if resp.StatusCode != want {
			t.Errorf("request %d status = %d, want %d", i, resp.StatusCode, want)
		}
		if i == 3 && resp.Header.Get("Retry-After") == "" {
			t.Error("throttled response has no Retry-After header")
		}
	}

	resp, err := http.Get(ts.URL + "/ws?seed=4")
	if err != nil {
		t.Fatalf("GET /ws failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("stream request status = %d, want 429", resp.StatusCode)
	}
}

func TestGetDungeonRepeatCooldown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AntiSpam = antispam.Config{Enabled: true, MaxRequests: 10, TimeWindow: time.Minute, RepeatCooldown: time.Minute}
	_, ts := newTestServer(t, cfg, false)

	getDungeon(t, ts.URL+"/dungeon?seed=3")

	resp, err := http.Get(ts.URL + "/dungeon?seed=3")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("repeated request status = %d, want 429", resp.StatusCode)
	}

	getDungeon(t, ts.URL+"/dungeon?seed=3&width=50")
}

func TestPersistedDungeons(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), true)

	first := getDungeon(t, ts.URL+"/dungeon?seed=12")
	if first.ID == 0 {
		t.Fatal("dungeon not persisted")
	}
	again := getDungeon(t, ts.URL+"/dungeon?seed=12")
	if again.ID != first.ID {
		t.Errorf("same seed stored twice: ids %d and %d", first.ID, again.ID)
	}

	resp, err := http.Get(ts.URL + "/dungeons")
	if err != nil {
		t.Fatalf("GET /dungeons failed: %v", err)
	}
	var list []store.Summary
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(list) != 1 || list[0].ID != first.ID {
		t.Errorf("list = %+v, want one entry with id %d", list, first.ID)
	}

	loaded := getDungeon(t, fmt.Sprintf("%s/dungeons/%d?trace=true", ts.URL, first.ID))
	if loaded.Fingerprint != first.Fingerprint {
		t.Error("loaded dungeon fingerprint differs")
	}
	if len(loaded.Trace) != first.Events {
		t.Errorf("loaded trace = %d events, want %d", len(loaded.Trace), first.Events)
	}

	resp, err = http.Get(ts.URL + "/dungeons/9999")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing dungeon status = %d, want 404", resp.StatusCode)
	}
}

func TestListWithoutStore(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), false)

	resp, err := http.Get(ts.URL + "/dungeons")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

// readStream collects messages until the done frame
func readStream(t *testing.T, conn *websocket.Conn) (header *DungeonResponse, events dungeon.Trace, states []string, done StreamMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("stream read failed after %d events: %v", len(events), err)
		}
		switch msg.Type {
		case MessageDungeon:
			header = msg.Dungeon
		case MessageEvent:
			if msg.Seq != len(events) {
				t.Fatalf("event seq = %d, want %d", msg.Seq, len(events))
			}
			events = append(events, *msg.Event)
		case MessageState:
			states = append(states, msg.State)
		case MessageDone:
			return header, events, states, msg
		}
	}
}

func TestWebSocketStream(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), false)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "seed=3"), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	header, events, _, done := readStream(t, conn)
	if header == nil {
		t.Fatal("no dungeon header received")
	}
	if len(header.Layout) != 0 {
		t.Error("header should not reveal the layout")
	}
	if len(events) != header.Events || done.Events != header.Events {
		t.Errorf("received %d events, done says %d, header says %d", len(events), done.Events, header.Events)
	}

	grid, err := events.Replay(header.Width, header.Height)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	want, _, err := dungeon.Generate(48, 48, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := range want.Kinds {
		if grid.Kinds[i] != want.Kinds[i] {
			t.Fatalf("replayed cell %d = %s, want %s", i, grid.Kinds[i], want.Kinds[i])
		}
	}
}

func TestWebSocketSkip(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RevealInterval = time.Hour
	_, ts := newTestServer(t, cfg, false)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "seed=4"), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("  SKIP \n")); err != nil {
		t.Fatalf("write command: %v", err)
	}

	header, events, states, _ := readStream(t, conn)
	if len(events) != header.Events {
		t.Errorf("received %d of %d events after skip", len(events), header.Events)
	}
	if len(states) != 1 || states[0] != "finished" {
		t.Errorf("states = %v, want [finished]", states)
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), false)

	header := http.Header{"Origin": []string{"http://evil.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "seed=1"), header)
	if err == nil {
		t.Fatal("expected dial to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestWebSocketStreamLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxStreamsPerIP = 1
	s, ts := newTestServer(t, cfg, false)

	s.limiter.TryAcquire("127.0.0.1")
	defer s.limiter.Release("127.0.0.1")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "seed=1"), nil)
	if err == nil {
		t.Fatal("expected dial to fail when the stream limit is reached")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("response = %v, want 429", resp)
	}
}

func TestWebSocketShutdownEndsStream(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RevealInterval = time.Hour
	s, ts := newTestServer(t, cfg, false)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "seed=2"), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageDungeon {
		t.Fatalf("first frame = %+v, %v", msg, err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after shutdown = %v, want normal close", err)
	}
}

func TestShutdownCalledTwice(t *testing.T) {
	s := New(nil, nil)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Shutdown panicked: %v", r)
		}
	}()
	s.Shutdown(context.Background())
	s.Shutdown(context.Background())
}
