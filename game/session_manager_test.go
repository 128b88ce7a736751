package game

import (
	"testing"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

func twoSeats(id1, id2 string) map[string]*share.UserInfo {
	return map[string]*share.UserInfo{
		id1: {UserID: id1, SeatIndex: 0, IsOnline: true},
		id2: {UserID: id2, SeatIndex: 1, IsOnline: true},
	}
}

func TestRegisterSessionInitializesEngine(t *testing.T) {
	sm := NewSessionManager()
	engine := &fakeEngine{}

	session, err := sm.RegisterSession("s1", twoSeats("alice", "bob"), engine)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !engine.initialized {
		t.Fatalf("engine should be initialized during registration")
	}
	if got, _ := sm.GetSession("s1"); got != session {
		t.Fatalf("session not retrievable")
	}
	if got, ok := sm.GetPlayerSession("alice"); !ok || got.ID != "s1" {
		t.Fatalf("player routing missing")
	}

	sessions, players := sm.GetStats()
	if sessions != 1 || players != 2 {
		t.Fatalf("stats expected 1/2, got %d/%d", sessions, players)
	}
}

func TestRegisterSessionRejectsBusyPlayer(t *testing.T) {
	sm := NewSessionManager()
	if _, err := sm.RegisterSession("s1", twoSeats("alice", "bob"), &fakeEngine{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := sm.RegisterSession("s2", twoSeats("alice", "carol"), &fakeEngine{}); err == nil {
		t.Fatalf("player in two sessions should be rejected")
	}
}

func TestRegisterSessionRejectsBadSeats(t *testing.T) {
	sm := NewSessionManager()
	users := map[string]*share.UserInfo{
		"alice": {UserID: "alice", SeatIndex: 0},
		"bob":   {UserID: "bob", SeatIndex: 0},
	}
	if _, err := sm.RegisterSession("s1", users, &fakeEngine{}); err == nil {
		t.Fatalf("duplicate seats should be rejected")
	}
}

func TestDeleteSessionClosesEngineAndRouting(t *testing.T) {
	sm := NewSessionManager()
	engine := &fakeEngine{}
	if _, err := sm.RegisterSession("s1", twoSeats("alice", "bob"), engine); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := sm.DeleteSession("s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !engine.closed {
		t.Fatalf("engine should be closed")
	}
	if _, ok := sm.GetPlayerSession("alice"); ok {
		t.Fatalf("player routing should be gone")
	}
	if err := sm.DeleteSession("s1"); err == nil {
		t.Fatalf("double delete should error")
	}
}

func TestAdoptSessionSkipsEngineInit(t *testing.T) {
	sm := NewSessionManager()
	engine := &fakeEngine{}

	if _, err := sm.AdoptSession("s1", twoSeats("alice", "bob"), engine); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if engine.initialized {
		t.Fatalf("adopted engine must not be re-initialized")
	}
	if got, ok := sm.GetPlayerSession("bob"); !ok || got.ID != "s1" {
		t.Fatalf("player routing missing after adoption")
	}
}

func TestUpdatePlayerConnector(t *testing.T) {
	sm := NewSessionManager()
	if _, err := sm.RegisterSession("s1", twoSeats("alice", "bob"), &fakeEngine{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := sm.UpdatePlayerConnector("alice", "connector-9"); err != nil {
		t.Fatalf("update connector: %v", err)
	}
	if topic, ok := sm.GetPlayerConnector("alice"); !ok || topic != "connector-9" {
		t.Fatalf("connector expected connector-9, got %q", topic)
	}
	if err := sm.UpdatePlayerConnector("nobody", "x"); err == nil {
		t.Fatalf("unknown player should error")
	}
}
