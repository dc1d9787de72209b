package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestStatsTracksTCPClients(t *testing.T) {
	hub := NewHub()

	a, aPeer := net.Pipe()
	b, bPeer := net.Pipe()
	defer aPeer.Close()
	defer bPeer.Close()

	hub.Add(a)
	hub.Add(b)
	if got := hub.Stats(); got.TCPClients != 2 || got.WSClients != 0 {
		t.Fatalf("stats = %+v, want 2 tcp / 0 ws", got)
	}

	hub.Remove(a)
	if got := hub.Stats(); got.TCPClients != 1 {
		t.Fatalf("stats after remove = %+v, want 1 tcp", got)
	}
	hub.Remove(b)
}

func TestBroadcastJSONDropsDeadClients(t *testing.T) {
	hub := NewHub()

	good, goodPeer := net.Pipe()
	dead, deadPeer := net.Pipe()
	defer goodPeer.Close()
	_ = deadPeer.Close() // writes to dead now fail

	hub.Add(good)
	hub.Add(dead)

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(goodPeer)
		if sc.Scan() {
			lines <- sc.Text()
		}
	}()

	hub.BroadcastJSON(CalendarEvent{
		Type:     EventCalendarRefreshed,
		SeriesID: "s1",
		At:       time.Now().UTC(),
	})

	select {
	case line := <-lines:
		var got CalendarEvent
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if got.Type != EventCalendarRefreshed || got.SeriesID != "s1" {
			t.Fatalf("broadcast payload = %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("live client never received the broadcast")
	}

	if got := hub.Stats(); got.TCPClients != 1 {
		t.Fatalf("stats = %+v, want the dead client dropped", got)
	}
}

func TestWSHandlerRegistersAndReceivesBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	router := gin.New()
	router.GET("/ws", WSHandler(hub))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	defer ws.Close()

	// the welcome frame is written after registration, so reading it means
	// the stats must already count us
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if got := hub.Stats(); got.WSClients != 1 {
		t.Fatalf("stats = %+v, want 1 ws client", got)
	}

	hub.BroadcastJSON(CalendarEvent{Type: EventSeriesImported, SeriesID: "s1", At: time.Now().UTC()})

	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var got CalendarEvent
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if got.Type != EventSeriesImported || got.SeriesID != "s1" {
		t.Fatalf("broadcast payload = %+v", got)
	}
}
