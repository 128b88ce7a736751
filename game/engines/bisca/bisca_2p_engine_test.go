package bisca

import (
	"testing"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// newTestEngine builds an engine without the actor loop so tests can
// drive the event handlers synchronously.
func newTestEngine(handSize, winsNeeded int) *Bisca2p {
	params := &share.SessionParams{HandSize: handSize, WinsNeeded: winsNeeded, Practice: true}
	eg := NewBisca2p(nil, params)
	eg.SessionID = "test-session"
	eg.UserMap = map[string]*share.UserInfo{
		"alice": {UserID: "alice", Name: "Alice", SeatIndex: 0, IsOnline: true},
		"bob":   {UserID: "bob", Name: "Bob", SeatIndex: 1, IsOnline: true},
	}
	eg.Players[0] = NewPlayerImage("alice", 0, false)
	eg.Players[1] = NewPlayerImage("bob", 1, false)
	eg.TurnManager = NewTurnManager([2]*PlayerTicker{NewPlayerTicker(), NewPlayerTicker()})
	return eg
}

func firstLegalIndex(eg *Bisca2p, p *PlayerImage) int {
	var lead *Card
	if len(eg.Table) == 1 {
		lead = &eg.Table[0].Card
	}
	for i, c := range p.Hand {
		if IsLegalPlay(p.Hand, lead, eg.DeckManager.Exhausted(), c) {
			return i
		}
	}
	return -1
}

func TestFullMatchPointConservation(t *testing.T) {
	eg := newTestEngine(3, 1)
	eg.handleStartRoundEvent()

	steps := 0
	for !eg.gameOver {
		steps++
		if steps > 2000 {
			t.Fatalf("match did not terminate")
		}
		if eg.roundOver {
			// 60-60 tie with winsNeeded 1: play another round.
			eg.handleStartRoundEvent()
			continue
		}
		if len(eg.Table) == 2 {
			before := eg.Players[0].Score + eg.Players[1].Score
			tablePoints := eg.Table[0].Card.Points() + eg.Table[1].Card.Points()
			eg.handleTrickResolveEvent()
			if !eg.roundOver && !eg.gameOver {
				after := eg.Players[0].Score + eg.Players[1].Score
				if after != before+tablePoints {
					t.Fatalf("trick points leaked: before=%d table=%d after=%d", before, tablePoints, after)
				}
			}
			continue
		}

		seat := eg.TurnManager.GetCurrentSeat()
		idx := firstLegalIndex(eg, eg.Players[seat])
		if idx < 0 {
			t.Fatalf("no legal play for seat %d with hand %v", seat, eg.Players[seat].Hand)
		}
		if !eg.applyPlay(seat, idx) {
			t.Fatalf("legal play rejected for seat %d", seat)
		}
	}

	if got := eg.Players[0].Score + eg.Players[1].Score; got != TotalPoints {
		t.Fatalf("final round points expected %d, got %d", TotalPoints, got)
	}
	if len(eg.Players[0].Hand) != 0 || len(eg.Players[1].Hand) != 0 {
		t.Fatalf("hands should be empty at match end")
	}
	if eg.TurnManager.GetState() != TurnStateMatchOver {
		t.Fatalf("turn state expected MatchOver, got %v", eg.TurnManager.GetState())
	}
}

func TestIllegalPlayLeavesStateUntouched(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	seat := eg.TurnManager.GetCurrentSeat()
	handBefore := len(eg.Players[seat].Hand)

	if eg.applyPlay(seat, 99) {
		t.Fatalf("out of range index should be rejected")
	}
	if len(eg.Players[seat].Hand) != handBefore {
		t.Fatalf("hand mutated by rejected play")
	}
	if len(eg.Table) != 0 {
		t.Fatalf("table mutated by rejected play")
	}
}

func TestTimeoutForfeitAwardsRemainingPoints(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	// Leader plays one card so the table is mid-trick.
	seat := eg.TurnManager.GetCurrentSeat()
	if !eg.applyPlay(seat, firstLegalIndex(eg, eg.Players[seat])) {
		t.Fatalf("setup play rejected")
	}

	losing := eg.TurnManager.GetCurrentSeat()
	winning := 1 - losing
	eg.resolveTimeout(losing)

	if !eg.gameOver || !eg.forfeited {
		t.Fatalf("forfeit should end the match immediately")
	}
	if eg.Players[winning].Marks != 4 {
		t.Fatalf("winner marks expected %d, got %d", 4, eg.Players[winning].Marks)
	}
	total := eg.Players[0].TotalPoints + eg.Players[1].TotalPoints
	if total != TotalPoints {
		t.Fatalf("forfeit must account for all %d points, got %d", TotalPoints, total)
	}

	// Second timeout for the same session is a no-op.
	winnerTotal := eg.Players[winning].TotalPoints
	eg.resolveTimeout(losing)
	if eg.Players[winning].TotalPoints != winnerTotal {
		t.Fatalf("forfeit settled twice")
	}
}

func TestStaleTimeoutIsIgnored(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	// Timeout signal for the seat that is not on turn.
	stale := 1 - eg.TurnManager.GetCurrentSeat()
	eg.handleTimeoutEvent(&TimeoutEvent{SeatIndex: stale})
	if eg.gameOver {
		t.Fatalf("stale timeout must not end the match")
	}
}

func TestReconnectAndDisconnectToggleUserState(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	disconnect := &share.DisconnectEvent{}
	disconnect.UserID = "bob"
	eg.handleDisconnectEvent(disconnect)
	if eg.UserMap["bob"].IsOnline {
		t.Fatalf("bob should be offline")
	}
	if eg.gameOver {
		t.Fatalf("disconnect must not end the match")
	}

	reconnect := &share.ReconnectEvent{ConnectorNodeID: "connector-2"}
	reconnect.UserID = "bob"
	eg.handleReconnectEvent(reconnect)
	if !eg.UserMap["bob"].IsOnline || eg.UserMap["bob"].ConnectorNodeID != "connector-2" {
		t.Fatalf("bob should be back online on connector-2")
	}
}

func TestTrickWinnerLeadsNextTrick(t *testing.T) {
	eg := newTestEngine(3, 4)
	eg.handleStartRoundEvent()

	for i := 0; i < 2; i++ {
		seat := eg.TurnManager.GetCurrentSeat()
		if !eg.applyPlay(seat, firstLegalIndex(eg, eg.Players[seat])) {
			t.Fatalf("setup play rejected")
		}
	}
	res := ResolveTrick(eg.Table[0], eg.Table[1], eg.DeckManager.TrumpSuit())
	eg.handleTrickResolveEvent()

	if eg.Leader != res.WinnerSeat {
		t.Fatalf("trick winner should lead, leader=%d winner=%d", eg.Leader, res.WinnerSeat)
	}
	if eg.TurnManager.GetCurrentSeat() != res.WinnerSeat {
		t.Fatalf("turn should pass to trick winner")
	}
	// Winner drew first, both hands back to full size.
	if len(eg.Players[0].Hand) != 3 || len(eg.Players[1].Hand) != 3 {
		t.Fatalf("hands should be replenished to 3, got %d/%d", len(eg.Players[0].Hand), len(eg.Players[1].Hand))
	}
}
