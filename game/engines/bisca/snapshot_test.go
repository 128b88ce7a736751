package bisca

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	// Advance one play so the snapshot has a live table.
	seat := eg.TurnManager.GetCurrentSeat()
	if !eg.applyPlay(seat, firstLegalIndex(eg, eg.Players[seat])) {
		t.Fatalf("setup play rejected")
	}

	blob, err := json.Marshal(eg.buildSnapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	engine, users, err := RestoreBisca2p(nil, eg.SessionID, blob)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored := engine.(*Bisca2p)
	defer restored.Close()

	if len(users) != 2 || users["alice"] == nil || users["bob"] == nil {
		t.Fatalf("restored users incomplete: %v", users)
	}
	if restored.SessionID != eg.SessionID {
		t.Fatalf("session id mismatch")
	}
	if restored.RoundNumber != eg.RoundNumber {
		t.Fatalf("round number mismatch: %d vs %d", restored.RoundNumber, eg.RoundNumber)
	}
	if restored.TurnManager.GetCurrentSeat() != eg.TurnManager.GetCurrentSeat() {
		t.Fatalf("turn mismatch")
	}
	if len(restored.Table) != 1 || restored.Table[0] != eg.Table[0] {
		t.Fatalf("table mismatch: %v vs %v", restored.Table, eg.Table)
	}
	if restored.DeckManager.TrumpSuit() != eg.DeckManager.TrumpSuit() {
		t.Fatalf("trump suit mismatch")
	}
	if restored.DeckManager.Remaining() != eg.DeckManager.Remaining() {
		t.Fatalf("deck size mismatch: %d vs %d", restored.DeckManager.Remaining(), eg.DeckManager.Remaining())
	}
	for i := 0; i < 2; i++ {
		if len(restored.Players[i].Hand) != len(eg.Players[i].Hand) {
			t.Fatalf("seat %d hand size mismatch", i)
		}
		if restored.Players[i].Score != eg.Players[i].Score || restored.Players[i].Marks != eg.Players[i].Marks {
			t.Fatalf("seat %d progress mismatch", i)
		}
	}
}

func TestRestoreRefusesFinishedSession(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()
	eg.gameOver = true

	blob, err := json.Marshal(eg.buildSnapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if _, _, err := RestoreBisca2p(nil, eg.SessionID, blob); err == nil {
		t.Fatalf("finished session must not be restorable")
	}
}

func TestParseSnapshotRejectsGarbage(t *testing.T) {
	if _, err := ParseSnapshot([]byte("{not json")); err == nil {
		t.Fatalf("garbage blob should fail to parse")
	}
}
