package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hysteria/communication"
	"hysteria/game"

	"github.com/gorilla/websocket"
)

var _ communication.Communicator = (*ClientCommunicator)(nil)

// ClientCommunicator drives an engine served by a ServerCommunicator.
type ClientCommunicator struct {
	serverURL string
	http      *http.Client
}

// NewClientCommunicator initializes and returns a new ClientCommunicator.
func NewClientCommunicator(serverURL string) *ClientCommunicator {
	return &ClientCommunicator{
		serverURL: strings.TrimRight(serverURL, "/"),
		http:      http.DefaultClient,
	}
}

func (cc *ClientCommunicator) GetGameState(ctx context.Context) (*communication.Snapshot, error) {
	var snap communication.Snapshot
	if err := cc.do(ctx, http.MethodGet, "/state", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (cc *ClientCommunicator) Step(ctx context.Context) (*communication.StepResponse, error) {
	var resp communication.StepResponse
	if err := cc.do(ctx, http.MethodPost, "/step", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (cc *ClientCommunicator) SetCell(ctx context.Context, x, y int, cell game.CellType) error {
	return cc.do(ctx, http.MethodPost, "/cell", communication.Edit{X: x, Y: y, Value: cell.String()}, nil)
}

func (cc *ClientCommunicator) SetItem(ctx context.Context, x, y int, item game.ItemType) error {
	return cc.do(ctx, http.MethodPost, "/item", communication.Edit{X: x, Y: y, Value: item.String()}, nil)
}

// PlannedAction asks for the action agent has committed to offset turns
// ahead.
func (cc *ClientCommunicator) PlannedAction(ctx context.Context, agent, offset int) (game.Action, error) {
	q := url.Values{}
	q.Set("agent", strconv.Itoa(agent))
	q.Set("offset", strconv.Itoa(offset))
	var resp communication.PlanResponse
	if err := cc.do(ctx, http.MethodGet, "/plan?"+q.Encode(), nil, &resp); err != nil {
		return game.Wait, err
	}
	return resp.Action, nil
}

// Observe streams snapshots to fn until ctx is cancelled, the server goes
// away or fn returns an error. The first snapshot is the state at the time
// of connecting.
func (cc *ClientCommunicator) Observe(ctx context.Context, fn func(*communication.Snapshot) error) error {
	wsURL := "ws" + strings.TrimPrefix(cc.serverURL, "http") + "/observe"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect observer: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var snap communication.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		if err := fn(&snap); err != nil {
			return err
		}
	}
}

func (cc *ClientCommunicator) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, cc.serverURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := cc.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
