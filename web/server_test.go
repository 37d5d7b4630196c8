package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlebot/game"
)

type fakeBot struct {
	lock     sync.Mutex
	paused   bool
	settings map[string]any
}

func (f *fakeBot) State() ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return json.Marshal(map[string]any{"state": "running", "paused": f.paused})
}

func (f *fakeBot) Pause() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.paused = true
}

func (f *fakeBot) Resume() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.paused = false
}

func (f *fakeBot) UpdateSetting(key string, value any) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if key != "mode" && key != "game_speed" {
		return fmt.Errorf("unknown bot setting %q", key)
	}
	if f.settings == nil {
		f.settings = make(map[string]any)
	}
	f.settings[key] = value
	return nil
}

func (f *fakeBot) IsPaused() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.paused
}

func startTestServer(t *testing.T) (*httptest.Server, *Hub, *fakeBot) {
	server, hub, bot, _ := startCancellableServer(t)
	return server, hub, bot
}

func startCancellableServer(t *testing.T) (*httptest.Server, *Hub, *fakeBot, context.CancelFunc) {
	t.Helper()
	bot := &fakeBot{}
	hub := NewHub(bot)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	server := httptest.NewServer(Handler(hub))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return server, hub, bot, cancel
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_StateAndControl(t *testing.T) {
	server, _, bot := startTestServer(t)

	resp, err := http.Get(server.URL + "/state")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"state":"running","paused":false}`, string(body))

	resp, err = http.Get(server.URL + "/pause")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.False(t, bot.IsPaused())

	resp, err = http.Post(server.URL+"/pause", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bot.IsPaused())

	resp, err = http.Post(server.URL+"/resume", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, bot.IsPaused())
}

func TestHandler_Settings(t *testing.T) {
	server, _, bot := startTestServer(t)

	resp, err := http.Post(server.URL+"/settings", "application/json", strings.NewReader(`{"key":"mode","value":"experimental"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/settings", "application/json", strings.NewReader(`{"key":"game_speed","value":4}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bot.lock.Lock()
	assert.Equal(t, "experimental", bot.settings["mode"])
	assert.Equal(t, 4.0, bot.settings["game_speed"])
	bot.lock.Unlock()

	resp, err = http.Post(server.URL+"/settings", "application/json", strings.NewReader(`{"key":"colour","value":"red"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown bot setting")

	resp, err = http.Post(server.URL+"/settings", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/settings")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandler_NoBot(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	resp, err := http.Get(server.URL + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHub_WebSocketBroadcast(t *testing.T) {
	server, hub, _ := startTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.Equal(t, "state", first.Type)
	assert.Equal(t, "running", first.State["state"])

	hub.Notify("Bought Drones for 10 (level 1)")
	msg := readMessage(t, conn)
	assert.Equal(t, MessageNotice, msg.Type)
	assert.Equal(t, "Bought Drones for 10 (level 1)", msg.Message)

	hub.Stats(game.StatsSnapshot{{Label: "Money", Value: "90"}})
	msg = readMessage(t, conn)
	assert.Equal(t, MessageStats, msg.Type)
	assert.Equal(t, []game.Stat{{Label: "Money", Value: "90"}}, msg.Stats)

	hub.Error("no mutator registered")
	msg = readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
}

func TestHub_NilIsSafe(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Notify("x")
		hub.BroadcastFullState()
	})
}

func TestHub_ClientsReleasedAfterRunReturns(t *testing.T) {
	server, hub, _, cancel := startCancellableServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	// The hub closed the client; its read loop must be able to exit.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, isTimeout(err), "connection should be closed, not left hanging")

	// New connections are turned away instead of blocking on register.
	late, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
	assert.False(t, isTimeout(err), "late connection should be closed by the server")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
