package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/transfer"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

func newCreateWorker(t *testing.T) (*Worker, *fakeEngine) {
	t.Helper()
	w := NewWorker("node-1")
	t.Cleanup(w.Close)

	engine := &fakeEngine{}
	w.SetEngineFactories(func(worker *Worker, params *share.SessionParams) engines.Engine {
		return engine
	}, nil)
	return w, engine
}

func createMessage(t *testing.T, req *transfer.CreateSessionRequest) []byte {
	t.Helper()
	blob, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return blob
}

func createResponse(t *testing.T, result any) *transfer.CreateSessionResponse {
	t.Helper()
	resp, ok := result.(*transfer.CreateSessionResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", result)
	}
	return resp
}

func TestCreateSessionTwoHumans(t *testing.T) {
	w, engine := newCreateWorker(t)

	result := w.handleCreateSession(createMessage(t, &transfer.CreateSessionRequest{
		Players: []transfer.PlayerJoinDTO{
			{UserID: "alice", Name: "Alice", Token: sessionToken(t, "alice"), ConnectorNodeID: "conn-1"},
			{UserID: "bob", Name: "Bob", Token: sessionToken(t, "bob"), ConnectorNodeID: "conn-2"},
		},
		WinsNeeded: 4,
	}))
	resp := createResponse(t, result)

	if resp.Error != "" {
		t.Fatalf("create failed: %s", resp.Error)
	}
	if resp.SessionID == "" {
		t.Fatalf("missing session id")
	}
	if !engine.initialized {
		t.Fatalf("engine should be initialized")
	}
	session, exists := w.SessionManager.GetSession(resp.SessionID)
	if !exists {
		t.Fatalf("session not registered")
	}
	alice, found := session.GetPlayer("alice")
	if !found || alice.SeatIndex != 0 {
		t.Fatalf("alice should sit at seat 0")
	}
	if bob, _ := session.GetPlayer("bob"); bob.SeatIndex != 1 {
		t.Fatalf("bob should sit at seat 1")
	}
}

func TestCreateSessionVsBot(t *testing.T) {
	w, _ := newCreateWorker(t)
	store := newFakeSessionStore()
	w.Store = store

	result := w.handleCreateSession(createMessage(t, &transfer.CreateSessionRequest{
		Players: []transfer.PlayerJoinDTO{
			{UserID: "alice", Name: "Alice", Token: sessionToken(t, "alice"), ConnectorNodeID: "conn-1"},
		},
		VsBot:      true,
		WinsNeeded: 4,
		Stake:      100,
	}))
	resp := createResponse(t, result)

	if resp.Error != "" {
		t.Fatalf("create failed: %s", resp.Error)
	}
	session, _ := w.SessionManager.GetSession(resp.SessionID)
	if session == nil {
		t.Fatalf("session not registered")
	}

	botSeated := false
	session.mu.RLock()
	for _, userInfo := range session.Users {
		if userInfo.IsBot && userInfo.SeatIndex == 1 {
			botSeated = true
		}
	}
	session.mu.RUnlock()
	if !botSeated {
		t.Fatalf("bot should fill seat 1")
	}

	// Metadata is persisted asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		meta, err := store.LoadMetadata(context.Background(), resp.SessionID)
		if err == nil {
			if meta.Stake != 100 || len(meta.BotSeats) != 1 || meta.BotSeats[0] != 1 {
				t.Fatalf("metadata mismatch: %+v", meta)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session metadata never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	w, _ := newCreateWorker(t)
	aliceToken := sessionToken(t, "alice")

	cases := []struct {
		name string
		req  *transfer.CreateSessionRequest
	}{
		{"one human without bot", &transfer.CreateSessionRequest{
			Players: []transfer.PlayerJoinDTO{{UserID: "alice", Token: aliceToken}},
		}},
		{"vsBot with two humans", &transfer.CreateSessionRequest{
			Players: []transfer.PlayerJoinDTO{
				{UserID: "alice", Token: aliceToken},
				{UserID: "bob", Token: sessionToken(t, "bob")},
			},
			VsBot: true,
		}},
		{"unsupported hand size", &transfer.CreateSessionRequest{
			Players: []transfer.PlayerJoinDTO{{UserID: "alice", Token: aliceToken}},
			VsBot:   true, HandSize: 5,
		}},
		{"negative stake", &transfer.CreateSessionRequest{
			Players: []transfer.PlayerJoinDTO{{UserID: "alice", Token: aliceToken}},
			VsBot:   true, Stake: -1,
		}},
		{"token user mismatch", &transfer.CreateSessionRequest{
			Players: []transfer.PlayerJoinDTO{{UserID: "alice", Token: sessionToken(t, "mallory")}},
			VsBot:   true,
		}},
	}
	for _, tc := range cases {
		resp := createResponse(t, w.handleCreateSession(createMessage(t, tc.req)))
		if resp.Error == "" {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
}

func TestPlayCardRoutesToEngine(t *testing.T) {
	w := NewWorker("node-1")
	defer w.Close()

	engine := &fakeEngine{}
	if _, err := w.SessionManager.RegisterSession("s1", twoSeats("alice", "bob"), engine); err != nil {
		t.Fatalf("register: %v", err)
	}

	blob, _ := json.Marshal(&transfer.PlayCardRequest{
		Token: sessionToken(t, "alice"), UserID: "alice", HandIndex: 2,
	})
	resp, ok := w.handlePlayCard(blob).(*transfer.PlayCardResponse)
	if !ok || !resp.Accepted {
		t.Fatalf("play should be accepted, got %+v", resp)
	}
	if !containsEvent(engine.eventTypes(), "PlayCard") {
		t.Fatalf("engine never saw the play event: %v", engine.eventTypes())
	}
}

func TestPlayCardWithoutSession(t *testing.T) {
	w := NewWorker("node-1")
	defer w.Close()

	blob, _ := json.Marshal(&transfer.PlayCardRequest{
		Token: sessionToken(t, "alice"), UserID: "alice",
	})
	resp, _ := w.handlePlayCard(blob).(*transfer.PlayCardResponse)
	if resp.Accepted || resp.Error != transfer.ErrSessionNotFound.Error() {
		t.Fatalf("expected session not found, got %+v", resp)
	}
}

func TestValidateTokenCachesResult(t *testing.T) {
	w := NewWorker("node-1")
	defer w.Close()

	token := sessionToken(t, "alice")
	if err := w.validateToken(token, "alice"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := w.validateToken(token, "bob"); err == nil {
		t.Fatalf("token for alice must not validate for bob")
	}
	if err := w.validateToken("", "alice"); err == nil {
		t.Fatalf("empty token must be rejected")
	}
}
