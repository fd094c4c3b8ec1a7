package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/adapters/store"
	"github.com/dkeye/Huddle/internal/adapters/token"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/account"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	orch *orch.Orchestrator
}

func newTestServer(t *testing.T, opts orch.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:       "test",
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 64,
		Secret:     "test-secret-test-secret-test-sec",
	}
	st, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	hub := app.NewHub(app.NewRegistry(), nil, app.DropPolicy{}, nil)
	o := orch.New(hub, st, opts, nil)
	t.Cleanup(o.Close)

	ctx, cancel := context.WithCancel(context.Background())
	r := SetupRouter(ctx, cfg, Deps{
		Orch:     o,
		Accounts: account.NewService(st, account.NewPasswordHasher(bcrypt.MinCost)),
		Tokens: token.NewLiveKitIssuer(config.LiveKitConfig{
			URL:       "wss://media.example.com",
			APIKey:    "key",
			APISecret: "secret-secret-secret-secret-1234",
		}),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{Server: srv, orch: o}
}

func (s *testServer) postJSON(t *testing.T, client *http.Client, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	if client == nil {
		client = s.Client()
	}
	resp, err := client.Post(s.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := s.Client().Get(s.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) register(t *testing.T, name string) domain.User {
	t.Helper()
	resp := s.postJSON(t, nil, "/api/register", map[string]string{
		"email":    name + "@example.com",
		"username": name,
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var u domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	return u
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (s *testServer) dial(t *testing.T, query string, jar http.CookieJar) *wsClient {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/ws"
	if query != "" {
		u += "?" + query
	}
	dialer := websocket.Dialer{Jar: jar, HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u, nil)
	require.NoError(t, err)
	c := &wsClient{t: t, conn: conn}
	t.Cleanup(func() { conn.Close() })
	return c
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// sync round-trips a ping so earlier events from this client are processed.
func (c *wsClient) sync() {
	c.t.Helper()
	c.send(core.EventPing, nil)
	c.expect(core.EventPong)
}

func (c *wsClient) expect(event string) core.WireEvent {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev core.WireEvent
		err := c.conn.ReadJSON(&ev)
		require.NoError(c.t, err, "waiting for %s", event)
		if ev.Event == event {
			return ev
		}
	}
}

// expectNone must be the last read on c: a read timeout breaks the connection.
func (c *wsClient) expectNone(event string, wait time.Duration) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(wait)))
	for {
		var ev core.WireEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		assert.NotEqual(c.t, event, ev.Event, "unexpected %s", event)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, orch.Options{RingTimeout: time.Minute})
	callee := srv.dial(t, "userId=u1", nil)
	caller := srv.dial(t, "userId=u2", nil)
	caller.send(core.EventStartCall, map[string]string{"to": "u1", "roomId": "call-1"})
	callee.expect(core.EventIncomingCall)

	resp := srv.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Calls       int    `json:"calls"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Connections)
	assert.Equal(t, 1, body.Calls)
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	alice := srv.register(t, "alice")

	dup := srv.postJSON(t, nil, "/api/register", map[string]string{"email": "alice@example.com", "username": "alice2", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, dup.StatusCode)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	bad := srv.postJSON(t, client, "/api/login", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	ok := srv.postJSON(t, client, "/api/login", map[string]string{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, ok.StatusCode)

	resp, err := client.Get(srv.URL + "/api/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, alice.ID, me.ID)
	assert.Empty(t, me.PasswordHash)
}

func TestChatOverWebSocket(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	a := srv.dial(t, "userId=u1", nil)
	b := srv.dial(t, "userId=u2", nil)
	c := srv.dial(t, "userId=u3", nil)

	a.send(core.EventJoinRoom, "r1")
	a.sync()
	b.send(core.EventJoinRoom, map[string]string{"roomId": "r1"})
	b.sync()
	c.send(core.EventJoinRoom, "r2")
	c.sync()

	a.send(core.EventSendMsg, map[string]string{"roomId": "r1", "userId": "u1", "username": "alice", "content": "hi"})

	var got domain.ChatMessage
	require.NoError(t, json.Unmarshal(b.expect(core.EventNewMsg).Data, &got))
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, domain.RoomID("r1"), got.RoomID)
	a.expect(core.EventNewMsg)

	resp := srv.get(t, "/api/messages/r1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []domain.ChatMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, got.ID, history[0].ID)

	c.expectNone(core.EventNewMsg, 100*time.Millisecond)
}

func TestStartCallOverWebSocket(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	callee := srv.dial(t, "userId=u1", nil)
	caller := srv.dial(t, "userId=u2", nil)
	other := srv.dial(t, "userId=u3", nil)
	other.send(core.EventJoinRoom, "lobby")
	other.sync()
	callee.sync()

	caller.send(core.EventStartCall, map[string]string{"to": "u1", "roomId": "call-1", "callerName": "bob"})

	var incoming map[string]any
	require.NoError(t, json.Unmarshal(callee.expect(core.EventIncomingCall).Data, &incoming))
	assert.Equal(t, "call-1", incoming["roomId"])
	assert.Equal(t, "bob", incoming["callerName"])
	assert.Equal(t, "u2", incoming["from"])

	other.expectNone(core.EventIncomingCall, 100*time.Millisecond)
}

func TestStartCallOfflineNotify(t *testing.T) {
	srv := newTestServer(t, orch.Options{OfflinePolicy: orch.OfflineNotify})
	caller := srv.dial(t, "userId=u2", nil)

	caller.send(core.EventStartCall, map[string]string{"to": "nobody", "roomId": "call-1"})

	var failed orch.CallFailed
	require.NoError(t, json.Unmarshal(caller.expect(core.EventCallFailed).Data, &failed))
	assert.Equal(t, orch.ReasonOffline, failed.Reason)
	assert.Equal(t, domain.RoomID("call-1"), failed.RoomID)
}

func TestStartCallReachesClientInOwnRoom(t *testing.T) {
	srv := newTestServer(t, orch.Options{OfflinePolicy: orch.OfflineNotify})
	callee := srv.dial(t, "", nil)
	callee.send(core.EventJoinRoom, "u1")
	callee.sync()
	caller := srv.dial(t, "userId=u2", nil)

	caller.send(core.EventStartCall, map[string]string{"to": "u1", "roomId": "call-1"})

	var incoming map[string]any
	require.NoError(t, json.Unmarshal(callee.expect(core.EventIncomingCall).Data, &incoming))
	assert.Equal(t, "u2", incoming["from"])
	caller.expectNone(core.EventCallFailed, 100*time.Millisecond)
}

func TestPresenceOverWebSocket(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	a := srv.dial(t, "", nil)
	b := srv.dial(t, "", nil)
	a.send(core.EventJoinRoom, "call-1")
	a.sync()
	b.send(core.EventJoinRoom, "call-1")
	b.sync()

	a.send(core.EventAgoraJoin, map[string]any{"roomId": "call-1", "uid": 77, "username": "alice"})

	ev := b.expect(core.EventUserNameInfo)
	assert.JSONEq(t, `{"roomId":"call-1","uid":77,"username":"alice"}`, string(ev.Data))
}

func TestBadPayloadGetsErrorFrame(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	a := srv.dial(t, "", nil)

	a.send(core.EventSendMsg, map[string]string{"content": "no room"})
	var e struct {
		Event string `json:"event"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(a.expect(core.EventError).Data, &e))
	assert.Equal(t, "bad_payload", e.Error)
	assert.Equal(t, core.EventSendMsg, e.Event)

	a.send("teleport", nil)
	require.NoError(t, json.Unmarshal(a.expect(core.EventError).Data, &e))
	assert.Equal(t, "unknown_event", e.Error)

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("{")))
	require.NoError(t, json.Unmarshal(a.expect(core.EventError).Data, &e))
	assert.Equal(t, "bad_json", e.Error)
}

func TestDisconnectLeavesRooms(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	a := srv.dial(t, "userId=u1", nil)
	a.send(core.EventJoinRoom, "r1")
	a.sync()
	require.Len(t, srv.orch.Registry.MembersOfRoom("r1"), 1)

	require.NoError(t, a.conn.Close())

	assert.Eventually(t, func() bool {
		return len(srv.orch.Registry.MembersOfRoom("r1")) == 0 && srv.orch.Registry.Stats().Connections == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFriendsNotifyTarget(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")

	bobWS := srv.dial(t, url.Values{"userId": {string(bob.ID)}}.Encode(), nil)
	bobWS.sync()

	resp := srv.postJSON(t, nil, "/api/friends/add", map[string]string{"myId": string(alice.ID), "targetUsername": "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bobWS.expect(core.EventUpdateFriends)

	again := srv.postJSON(t, nil, "/api/friends/add", map[string]string{"myId": string(alice.ID), "targetUsername": "bob"})
	assert.Equal(t, http.StatusBadRequest, again.StatusCode)

	missing := srv.postJSON(t, nil, "/api/friends/add", map[string]string{"myId": string(alice.ID), "targetUsername": "carol"})
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	list := srv.get(t, "/api/friends/"+string(bob.ID))
	require.Equal(t, http.StatusOK, list.StatusCode)
	var reqs []domain.FriendRequest
	require.NoError(t, json.NewDecoder(list.Body).Decode(&reqs))
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Sender)
	assert.Equal(t, "alice", reqs[0].Sender.Username)
	assert.Equal(t, "bob", reqs[0].Receiver.Username)
}

func TestSessionIdentityReachesWebSocket(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	alice := srv.register(t, "alice")

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}
	resp := srv.postJSON(t, client, "/api/login", map[string]string{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	callee := srv.dial(t, "", jar)
	callee.sync()
	caller := srv.dial(t, "userId=u9", nil)

	caller.send(core.EventStartCall, map[string]string{"to": string(alice.ID), "roomId": "call-7"})
	callee.expect(core.EventIncomingCall)
}

func TestMintToken(t *testing.T) {
	srv := newTestServer(t, orch.Options{})

	missing := srv.get(t, "/api/token?room=call-1")
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)

	resp := srv.get(t, "/api/token?room=call-1&username=alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grant core.Grant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&grant))
	assert.NotEmpty(t, grant.Token)
	assert.Equal(t, "wss://media.example.com", grant.URL)
	assert.True(t, strings.HasPrefix(grant.Identity, "alice_"))
}

func TestRoomMembers(t *testing.T) {
	srv := newTestServer(t, orch.Options{})
	a := srv.dial(t, "userId=u1", nil)
	a.send(core.EventJoinRoom, "r1")
	a.sync()

	resp := srv.get(t, "/api/rooms/r1/members")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view orch.RoomView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, domain.UserID("u1"), view.Members[0].Identity)
}
