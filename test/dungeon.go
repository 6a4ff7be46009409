package test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/server"
	"github.com/lawnchairsociety/dungeonmaker/internal/testclient"
)

// streamTimeout bounds every wait on a reveal stream
const streamTimeout = 30 * time.Second

// =============================================================================
// Group 1: HTTP Generation
// =============================================================================

// TestGenerateDungeon tests that GET /dungeon returns a complete dungeon
func TestGenerateDungeon(serverAddr string) TestResult {
	const testName = "Generate Dungeon"

	logAction(testName, "Requesting seed 42")
	body, status, err := testclient.GetDungeon(serverAddr, "/dungeon", "seed=42")
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	if status != http.StatusOK {
		return fail(testName, "Status %d, want 200", status)
	}

	logResult(testName, true, fmt.Sprintf("%dx%d, %d rooms, %d events", body.Width, body.Height, len(body.Rooms), body.Events))
	if len(body.Layout) != body.Height {
		return fail(testName, "Layout has %d rows, header says %d", len(body.Layout), body.Height)
	}
	if len(body.Atlas) != body.Width*body.Height {
		return fail(testName, "Atlas has %d cells, want %d", len(body.Atlas), body.Width*body.Height)
	}
	if len(body.Rooms) == 0 || body.Events == 0 {
		return fail(testName, "Dungeon is empty: %d rooms, %d events", len(body.Rooms), body.Events)
	}

	return pass(testName, "Generated %dx%d dungeon with %d rooms", body.Width, body.Height, len(body.Rooms))
}

// TestDeterministicSeed tests that the same seed always yields the same dungeon
func TestDeterministicSeed(serverAddr string) TestResult {
	const testName = "Deterministic Seed"

	var fingerprints []string
	for _, query := range []string{"seed=43", "seed=43", "seed=44"} {
		logAction(testName, "Requesting "+query)
		body, status, err := testclient.GetDungeon(serverAddr, "/dungeon", query)
		if err != nil || status != http.StatusOK {
			return fail(testName, "Request %s failed: status %d, %v", query, status, err)
		}
		fingerprints = append(fingerprints, body.Fingerprint)
	}

	logResult(testName, fingerprints[0] == fingerprints[1], "Same seed, same fingerprint")
	if fingerprints[0] != fingerprints[1] {
		return fail(testName, "Seed 43 produced two different dungeons")
	}
	logResult(testName, fingerprints[0] != fingerprints[2], "Different seed, different fingerprint")
	if fingerprints[0] == fingerprints[2] {
		return fail(testName, "Seeds 43 and 44 produced the same dungeon")
	}

	return pass(testName, "Seed 43 reproduced, seed 44 differs")
}

// TestBadRequests tests that invalid parameters are rejected
func TestBadRequests(serverAddr string) TestResult {
	const testName = "Bad Requests"

	cases := []struct {
		query  string
		status int
	}{
		{"seed=abc", http.StatusBadRequest},
		{"seed=1&width=0", http.StatusBadRequest},
		{"seed=1&width=8&height=8", http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		logAction(testName, "Requesting "+c.query)
		_, status, err := testclient.GetDungeon(serverAddr, "/dungeon", c.query)
		if err != nil {
			return fail(testName, "Request %s failed: %v", c.query, err)
		}
		logResult(testName, status == c.status, fmt.Sprintf("%s -> %d", c.query, status))
		if status != c.status {
			return fail(testName, "%s returned %d, want %d", c.query, status, c.status)
		}
	}

	return pass(testName, "%d invalid requests rejected", len(cases))
}

// =============================================================================
// Group 2: Reveal Stream
// =============================================================================

// TestStreamReplay tests that replaying the streamed trace rebuilds the dungeon
func TestStreamReplay(serverAddr string) TestResult {
	const testName = "Stream Replay"

	name := uniqueName("replay")
	logAction(testName, fmt.Sprintf("Connecting as '%s'...", name))
	client, err := testclient.NewTestClient(name, serverAddr, "seed=45")
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	if _, ok := client.WaitForMessage(server.MessageEvent, streamTimeout); !ok {
		return fail(testName, "No trace events received")
	}

	logAction(testName, "Skipping to the end")
	if err := client.SendCommand("skip"); err != nil {
		return fail(testName, "Failed to send skip: %v", err)
	}
	done, ok := client.WaitForMessage(server.MessageDone, streamTimeout)
	if !ok {
		return fail(testName, "Stream never finished")
	}

	header := client.Header()
	events := client.Events()
	logResult(testName, len(events) == header.Events, fmt.Sprintf("Received %d of %d events", len(events), header.Events))
	if len(events) != header.Events || done.Events != header.Events {
		return fail(testName, "Received %d events, done says %d, header says %d", len(events), done.Events, header.Events)
	}

	grid, err := client.Replay()
	if err != nil {
		return fail(testName, "Replay failed: %v", err)
	}
	want, _, err := testclient.GetDungeon(serverAddr, "/dungeon", "seed=45")
	if err != nil || want == nil {
		return fail(testName, "Reference request failed: %v", err)
	}
	for y, row := range grid.Layout() {
		if row != want.Layout[y] {
			return fail(testName, "Replayed row %d differs from the served layout", y)
		}
	}

	return pass(testName, "Replayed %d events into the served layout", len(events))
}

// TestStreamSkip tests that skip reports the finished state and flushes every event
func TestStreamSkip(serverAddr string) TestResult {
	const testName = "Stream Skip"

	client, err := testclient.NewTestClient(uniqueName("skip"), serverAddr, "seed=46")
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	if _, ok := client.WaitForMessage(server.MessageDungeon, streamTimeout); !ok {
		return fail(testName, "No dungeon header received")
	}

	logAction(testName, "Sending skip")
	if err := client.SendCommand("skip"); err != nil {
		return fail(testName, "Failed to send skip: %v", err)
	}
	found := client.WaitForState("finished", streamTimeout)
	logResult(testName, found, "State finished")
	if !found {
		return fail(testName, "No finished state after skip")
	}
	if _, ok := client.WaitForMessage(server.MessageDone, streamTimeout); !ok {
		return fail(testName, "No done message after skip")
	}

	return pass(testName, "Skip finished the stream with %d events", len(client.Events()))
}

// TestStreamPauseResume tests that a paused stream sends no events until resumed
func TestStreamPauseResume(serverAddr string) TestResult {
	const testName = "Stream Pause/Resume"

	client, err := testclient.NewTestClient(uniqueName("pause"), serverAddr, "seed=47")
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	if _, ok := client.WaitForMessage(server.MessageEvent, streamTimeout); !ok {
		return fail(testName, "No trace events received")
	}

	logAction(testName, "Sending pause")
	if err := client.SendCommand("pause"); err != nil {
		return fail(testName, "Failed to send pause: %v", err)
	}
	if !client.WaitForState("paused", streamTimeout) {
		return fail(testName, "No paused state after pause")
	}

	before := len(client.Events())
	time.Sleep(300 * time.Millisecond)
	after := len(client.Events())
	logResult(testName, before == after, fmt.Sprintf("%d events before wait, %d after", before, after))
	if before != after {
		return fail(testName, "Paused stream kept sending: %d -> %d events", before, after)
	}

	logAction(testName, "Sending resume")
	if err := client.SendCommand("resume"); err != nil {
		return fail(testName, "Failed to send resume: %v", err)
	}
	if !client.WaitForState("running", streamTimeout) {
		return fail(testName, "No running state after resume")
	}

	if err := client.SendCommand("skip"); err != nil {
		return fail(testName, "Failed to send skip: %v", err)
	}
	if _, ok := client.WaitForMessage(server.MessageDone, streamTimeout); !ok {
		return fail(testName, "Stream never finished after resume")
	}

	return pass(testName, "Pause held at %d events, resume and skip finished the stream", before)
}

// =============================================================================
// Group 3: Persistence
// =============================================================================

// TestStoredDungeons tests that generated dungeons can be loaded by id.
// Passes without checking when the server runs without a store.
func TestStoredDungeons(serverAddr string) TestResult {
	const testName = "Stored Dungeons"

	body, status, err := testclient.GetDungeon(serverAddr, "/dungeon", "seed=48")
	if err != nil || status != http.StatusOK {
		return fail(testName, "Generation failed: status %d, %v", status, err)
	}
	if body.ID == 0 {
		_, status, _ := testclient.GetDungeon(serverAddr, "/dungeons/1", "")
		if status == http.StatusServiceUnavailable {
			return pass(testName, "Persistence disabled on this server, skipped")
		}
		return fail(testName, "Dungeon was not assigned an id")
	}

	logAction(testName, fmt.Sprintf("Loading dungeon %d", body.ID))
	loaded, status, err := testclient.GetDungeon(serverAddr, fmt.Sprintf("/dungeons/%d", body.ID), "")
	if err != nil || status != http.StatusOK {
		return fail(testName, "Load failed: status %d, %v", status, err)
	}
	logResult(testName, loaded.Fingerprint == body.Fingerprint, "Fingerprint matches")
	if loaded.Fingerprint != body.Fingerprint {
		return fail(testName, "Loaded dungeon %d differs from the generated one", body.ID)
	}

	return pass(testName, "Dungeon %d stored and reloaded", body.ID)
}
