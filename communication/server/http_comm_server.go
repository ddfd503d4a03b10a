package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hysteria/communication"
	"hysteria/engine"
	"hysteria/game"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var _ communication.Communicator = (*ServerCommunicator)(nil)

// ServerCommunicator exposes an engine to renderers and editors over HTTP and
// streams a snapshot to websocket observers after every step.
type ServerCommunicator struct {
	engine *engine.Engine
	mutex  sync.RWMutex

	upgrader  websocket.Upgrader
	observers map[chan *communication.Snapshot]struct{}
	obsMutex  sync.Mutex
}

func NewServerCommunicator(e *engine.Engine) *ServerCommunicator {
	return &ServerCommunicator{
		engine: e,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		observers: make(map[chan *communication.Snapshot]struct{}),
	}
}

func (sc *ServerCommunicator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", sc.handleGetState)
	mux.HandleFunc("POST /cell", sc.handleSetCell)
	mux.HandleFunc("POST /item", sc.handleSetItem)
	mux.HandleFunc("POST /step", sc.handleStep)
	mux.HandleFunc("GET /plan", sc.handlePlan)
	mux.HandleFunc("GET /observe", sc.handleObserve)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (sc *ServerCommunicator) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: sc.Handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Info().Msgf("serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Step advances the engine by one turn and notifies observers.
func (sc *ServerCommunicator) Step(ctx context.Context) (*communication.StepResponse, error) {
	sc.mutex.Lock()
	actions, err := sc.engine.StepContext(ctx)
	if err != nil {
		sc.mutex.Unlock()
		return nil, err
	}
	snap := sc.snapshot()
	sc.mutex.Unlock()

	sc.broadcast(snap)
	return &communication.StepResponse{Turn: snap.Turn, Actions: actions}, nil
}

// GetGameState returns a snapshot of the current world.
func (sc *ServerCommunicator) GetGameState(ctx context.Context) (*communication.Snapshot, error) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.snapshot(), nil
}

// SetCell edits the live world. The engine replants its trees on the next
// step.
func (sc *ServerCommunicator) SetCell(ctx context.Context, x, y int, cell game.CellType) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.engine.State().SetCell(x, y, cell)
	return nil
}

func (sc *ServerCommunicator) SetItem(ctx context.Context, x, y int, item game.ItemType) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.engine.State().SetItem(x, y, item)
	return nil
}

func (sc *ServerCommunicator) snapshot() *communication.Snapshot {
	world := sc.engine.State()
	plans := make([][]game.Action, world.AgentCount())
	for i := range plans {
		plans[i] = sc.engine.Trajectory(i)
	}
	return communication.NewSnapshot(world, sc.engine.LastActions(), plans)
}

func (sc *ServerCommunicator) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap, _ := sc.GetGameState(r.Context())
	writeJSON(w, snap)
}

func (sc *ServerCommunicator) handleSetCell(w http.ResponseWriter, r *http.Request) {
	var edit communication.Edit
	var cell game.CellType
	if err := decodeEdit(r, &edit, &cell); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc.SetCell(r.Context(), edit.X, edit.Y, cell)
	w.WriteHeader(http.StatusNoContent)
}

func (sc *ServerCommunicator) handleSetItem(w http.ResponseWriter, r *http.Request) {
	var edit communication.Edit
	var item game.ItemType
	if err := decodeEdit(r, &edit, &item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc.SetItem(r.Context(), edit.X, edit.Y, item)
	w.WriteHeader(http.StatusNoContent)
}

type textValue interface {
	UnmarshalText([]byte) error
}

func decodeEdit(r *http.Request, edit *communication.Edit, value textValue) error {
	if err := json.NewDecoder(r.Body).Decode(edit); err != nil {
		return err
	}
	return value.UnmarshalText([]byte(edit.Value))
}

func (sc *ServerCommunicator) handleStep(w http.ResponseWriter, r *http.Request) {
	resp, err := sc.Step(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, resp)
}

func (sc *ServerCommunicator) handlePlan(w http.ResponseWriter, r *http.Request) {
	agent, err := strconv.Atoi(r.URL.Query().Get("agent"))
	if err != nil {
		http.Error(w, "agent must be an integer", http.StatusBadRequest)
		return
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "offset must be an integer", http.StatusBadRequest)
			return
		}
	}
	sc.mutex.RLock()
	action := sc.engine.PlannedAction(agent, offset)
	sc.mutex.RUnlock()
	writeJSON(w, communication.PlanResponse{Agent: agent, Offset: offset, Action: action})
}

func (sc *ServerCommunicator) handleObserve(w http.ResponseWriter, r *http.Request) {
	conn, err := sc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	out := make(chan *communication.Snapshot, 8)
	sc.obsMutex.Lock()
	sc.observers[out] = struct{}{}
	sc.obsMutex.Unlock()
	defer func() {
		sc.obsMutex.Lock()
		delete(sc.observers, out)
		sc.obsMutex.Unlock()
	}()

	// Writer goroutine, starting with the current state
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	done := make(chan struct{})
	first, _ := sc.GetGameState(ctx)
	go func() {
		defer close(done)
		if err := writeSnapshot(conn, first); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-out:
				if err := writeSnapshot(conn, snap); err != nil {
					log.Debug().Msgf("observer write failed: %v", err)
					return
				}
			}
		}
	}()

	// Reader loop only detects the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
}

func writeSnapshot(conn *websocket.Conn, snap *communication.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(snap)
}

// broadcast drops snapshots for observers that fall behind.
func (sc *ServerCommunicator) broadcast(snap *communication.Snapshot) {
	sc.obsMutex.Lock()
	defer sc.obsMutex.Unlock()
	for out := range sc.observers {
		select {
		case out <- snap:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Msgf("failed to encode response: %v", err)
	}
}
