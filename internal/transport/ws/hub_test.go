package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/events"
	"surveybot/internal/logger"
	"surveybot/internal/model"
)

type fakeValidator struct{}

func (fakeValidator) ValidateOperatorToken(token string) (*model.OperatorClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &model.OperatorClaims{OperatorID: "op_1"}, nil
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHub_ForwardReachesClients(t *testing.T) {
	hub, _ := startHub(t)

	conn := &Connection{OperatorID: "op_1", Send: make(chan []byte, 4)}
	require.True(t, hub.Register(conn))
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ev := events.NewEvent(events.SubjectSurveyCompleted, map[string]any{"respondent_id": 42})
	require.NoError(t, hub.Forward(context.Background(), ev))

	select {
	case data := <-conn.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MsgEvent, msg.Type)
		var got events.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, events.SubjectSurveyCompleted, got.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	hub.Unregister(conn)
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-conn.Send
	assert.False(t, open)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	conn := &Connection{Send: make(chan []byte, 1)}
	require.True(t, hub.Register(conn))

	cancel()
	select {
	case _, open := <-conn.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client not closed")
	}
	assert.False(t, hub.Register(&Connection{Send: make(chan []byte, 1)}))
	assert.NoError(t, hub.Forward(context.Background(), events.NewEvent("x", nil)))
}

func TestHub_SubscribesToBus(t *testing.T) {
	hub, _ := startHub(t)
	bus := events.NewMemoryBus(logger.Nop())
	defer bus.Close()

	sub, err := hub.Subscribe(bus)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	conn := &Connection{Send: make(chan []byte, 4)}
	require.True(t, hub.Register(conn))

	require.NoError(t, bus.Publish(context.Background(), events.SubjectSurveyStarted,
		events.NewEvent(events.SubjectSurveyStarted, nil)))

	select {
	case data := <-conn.Send:
		assert.Contains(t, string(data), events.SubjectSurveyStarted)
	case <-time.After(time.Second):
		t.Fatal("bus event not forwarded")
	}
}

func TestFeedWS(t *testing.T) {
	hub, _ := startHub(t)
	h := NewHandler(hub, fakeValidator{}, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.FeedWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	require.NoError(t, err)
	defer ws.Close()

	var hello Message
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, MsgHello, hello.Type)
	assert.JSONEq(t, `{"operatorId":"op_1"}`, string(hello.Payload))

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Forward(context.Background(), events.NewEvent(events.SubjectSurveyReset, nil)))

	var msg Message
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgEvent, msg.Type)
	assert.Contains(t, string(msg.Payload), events.SubjectSurveyReset)
}
