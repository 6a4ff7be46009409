// Package server serves generated dungeons over HTTP and streams their
// construction over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeonmaker/internal/antispam"
	"github.com/lawnchairsociety/dungeonmaker/internal/config"
	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

// maxGridSide bounds width and height requested through query parameters
const maxGridSide = 512

// Store is the persistence the server uses when one is configured.
// *store.Store satisfies it.
type Store interface {
	SaveDungeon(ctx context.Context, seed int64, g *dungeon.Grid, res *dungeon.Result) (int64, error)
	LoadDungeon(ctx context.Context, id int64) (*store.Record, error)
	ListDungeons(ctx context.Context, limit int) ([]store.Summary, error)
}

// Server generates dungeons on request.
type Server struct {
	cfg     *config.Config
	store   Store
	limiter *StreamLimiter
	guard   *antispam.Guard

	httpServer   *http.Server
	mu           sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New creates a server. st may be nil to run without persistence.
func New(cfg *config.Config, st Store) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		cfg:      cfg,
		store:    st,
		limiter:  NewStreamLimiter(cfg.Server.MaxStreamsPerIP, cfg.Server.MaxStreams),
		guard:    antispam.NewGuard(cfg.Server.AntiSpam),
		shutdown: make(chan struct{}),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dungeon", s.handleDungeon)
	mux.HandleFunc("GET /dungeons", s.handleList)
	mux.HandleFunc("GET /dungeons/{id}", s.handleLoad)
	mux.HandleFunc("GET /ws", s.handleWebSocketUpgrade)
	return mux
}

// ListenAndServe serves on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("Dungeon server listening", "address", srv.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops open streams and the HTTP listener. Safe to call more
// than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

// dungeonRequest is a parsed generation request
type dungeonRequest struct {
	seed      int64
	width     int
	height    int
	withTrace bool
}

// parseRequest reads seed, width, height and trace from the query string,
// falling back to the configured dungeon section.
func (s *Server) parseRequest(r *http.Request) (dungeonRequest, error) {
	q := r.URL.Query()
	req := dungeonRequest{
		width:  s.cfg.Dungeon.Width,
		height: s.cfg.Dungeon.Height,
	}

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid seed %q", v)
		}
		req.seed = seed
	} else {
		req.seed = s.cfg.Dungeon.SeedOrNow()
	}

	for _, dim := range []struct {
		name string
		dst  *int
	}{{"width", &req.width}, {"height", &req.height}} {
		v := q.Get(dim.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxGridSide {
			return req, fmt.Errorf("invalid %s %q: want 1..%d", dim.name, v, maxGridSide)
		}
		*dim.dst = n
	}

	req.withTrace, _ = strconv.ParseBool(q.Get("trace"))
	return req, nil
}

// key identifies the requested dungeon for repeat detection
func (req dungeonRequest) key() string {
	return fmt.Sprintf("%d/%dx%d", req.seed, req.width, req.height)
}

// allow applies the anti-spam guard. A refused request gets 429 with a
// Retry-After header.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, req dungeonRequest) bool {
	clientIP := getRealIP(r)
	result := s.guard.Check(clientIP, req.key())
	if result.Allowed {
		return true
	}
	logger.Warning("Request throttled", "client_ip", clientIP, "reason", result.Reason)
	w.Header().Set("Retry-After", strconv.Itoa(result.WaitSeconds))
	http.Error(w, result.Reason, http.StatusTooManyRequests)
	return false
}

// generate runs the pipeline for req and persists the result when a store
// is configured. The returned id is 0 without a store.
func (s *Server) generate(ctx context.Context, req dungeonRequest) (*dungeon.Grid, *dungeon.Result, int64, error) {
	grid, err := dungeon.NewGrid(req.width, req.height)
	if err != nil {
		return nil, nil, 0, err
	}
	res, err := dungeon.NewGenerator(s.cfg.Dungeon.Rules(), dungeon.NewSource(req.seed)).Generate(grid)
	if err != nil {
		return nil, nil, 0, err
	}

	var id int64
	if s.store != nil {
		id, err = s.store.SaveDungeon(ctx, req.seed, grid, res)
		if err != nil {
			logger.Warning("Failed to persist dungeon", "seed", req.seed, "error", err)
			id = 0
		}
	}
	return grid, res, id, nil
}

// generationStatus maps a generation error to an HTTP status
func generationStatus(err error) int {
	switch {
	case errors.Is(err, dungeon.ErrPlacementExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dungeon.ErrInvalidSize), errors.Is(err, dungeon.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DungeonResponse is the JSON body of GET /dungeon and GET /dungeons/{id}
type DungeonResponse struct {
	ID          int64                `json:"id,omitempty"`
	Seed        int64                `json:"seed"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	Fingerprint string               `json:"fingerprint"`
	Rooms       []dungeon.Room       `json:"rooms,omitempty"`
	Doors       []dungeon.Event      `json:"doors,omitempty"`
	Layout      []string             `json:"layout,omitempty"`
	Atlas       []dungeon.AtlasCoord `json:"atlas,omitempty"`
	Events      int                  `json:"events"`
	Trace       dungeon.Trace        `json:"trace,omitempty"`
}

func newDungeonResponse(id, seed int64, g *dungeon.Grid, rooms []dungeon.Room, doors []int, trace dungeon.Trace, withTrace bool) *DungeonResponse {
	resp := &DungeonResponse{
		ID:          id,
		Seed:        seed,
		Width:       g.Width,
		Height:      g.Height,
		Fingerprint: dungeon.Fingerprint(g, trace),
		Rooms:       rooms,
		Layout:      g.Layout(),
		Atlas:       g.Atlas,
		Events:      len(trace),
	}
	for _, idx := range doors {
		x, y, err := g.Coord(idx)
		if err == nil {
			resp.Doors = append(resp.Doors, dungeon.Event{X: x, Y: y, Kind: g.Kinds[idx]})
		}
	}
	if withTrace {
		resp.Trace = trace
	}
	return resp
}

func (s *Server) handleDungeon(w http.ResponseWriter, r *http.Request) {
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
		logger.Warning("Dungeon generation failed", "seed", req.seed, "error", err)
		http.Error(w, err.Error(), generationStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, newDungeonResponse(id, req.seed, grid, res.Rooms, res.Doors, res.Trace, req.withTrace))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := s.store.ListDungeons(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list dungeons", "error", err)
		http.Error(w, "failed to list dungeons", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := s.store.LoadDungeon(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Error("Failed to load dungeon", "id", id, "error", err)
		http.Error(w, "failed to load dungeon", http.StatusInternalServerError)
		return
	}

	withTrace, _ := strconv.ParseBool(r.URL.Query().Get("trace"))
	writeJSON(w, http.StatusOK, newDungeonResponse(rec.ID, rec.Seed, rec.Grid, nil, nil, rec.Trace, withTrace))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warning("Failed to write response", "error", err)
	}
}

// upgrader builds a websocket upgrader whose origin check follows the
// server config.
func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
}
