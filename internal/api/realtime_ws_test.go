package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wappgate/wappgate/internal/realtime"
	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

func wsURL(srv *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func TestRealtimeWebSocketRejectsMissingToken(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.handler.Router())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
	if env.hub.ClientCount() != 0 {
		t.Error("no client should be admitted")
	}
}

func TestRealtimeWebSocketRejectsExpiredToken(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.handler.Router())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, testSecret, -time.Minute)), nil)
	if err == nil {
		t.Fatal("dial with expired token should fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
}

func TestRealtimeWebSocketJoinNotificationsReceivesBroadcast(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.handler.Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, testSecret, time.Minute)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(realtimeTypes.ClientEnvelope{Action: realtimeTypes.ActionJoinNotifications}); err != nil {
		t.Fatalf("join notifications: %v", err)
	}

	// Subscription is applied by the read loop; wait until the hub sees it.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Give the join command time to be processed before publishing.
	time.Sleep(50 * time.Millisecond)

	env.hub.Publish(realtime.TopicNotification, realtimeTypes.ServerEnvelope{Event: "notificationPing"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg realtimeTypes.ServerEnvelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != "notificationPing" {
		t.Errorf("expected notification event, got %q", msg.Event)
	}
}

func TestSessionUpdateReachesSubscriberWithoutJoins(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.handler.Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, testSecret, time.Minute)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// Starting a session broadcasts lifecycle updates to every admitted
	// client, joined topics or not.
	resp, err := http.DefaultClient.Do(authedRequest(t, "POST", srv.URL+"/api/sessions/acct-ws", nil))
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg realtimeTypes.ServerEnvelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != realtimeTypes.EventSession {
		t.Errorf("expected %q event, got %q", realtimeTypes.EventSession, msg.Event)
	}
}

func TestRealtimeWebSocketUnknownAction(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.handler.Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, testSecret, time.Minute)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(realtimeTypes.ClientEnvelope{Action: "subscribeEverything"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg realtimeTypes.ServerEnvelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != realtimeTypes.EventError {
		t.Errorf("expected error event, got %q", msg.Event)
	}
}
