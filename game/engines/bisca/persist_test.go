package bisca

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

type recordingMatchRepo struct {
	mu      sync.Mutex
	created int
	rounds  []entity.RoundResult
	finals  []*entity.MatchFinalResult
}

func (r *recordingMatchRepo) CreateMatchRecord(ctx context.Context, token string, record *entity.MatchRecord) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return record.ID, nil
}

func (r *recordingMatchRepo) SettleRound(ctx context.Context, token string, recordID primitive.ObjectID, round entity.RoundResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
	return nil
}

func (r *recordingMatchRepo) SettleMatch(ctx context.Context, token string, recordID primitive.ObjectID, result *entity.MatchFinalResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, result)
	return nil
}

func (r *recordingMatchRepo) CancelRecord(ctx context.Context, recordID primitive.ObjectID, reason string) error {
	return nil
}

func (r *recordingMatchRepo) FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error) {
	return nil, repository.ErrMatchRecordNotFound
}

type recordingLedger struct {
	mu      sync.Mutex
	stakes  map[string]int64
	payouts map[string]int64
}

func newRecordingLedger() *recordingLedger {
	return &recordingLedger{stakes: make(map[string]int64), payouts: make(map[string]int64)}
}

func (l *recordingLedger) Stake(ctx context.Context, token, userID, sessionID string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stakes[userID] += amount
	return nil
}

func (l *recordingLedger) Payout(ctx context.Context, token, userID, sessionID string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payouts[userID] += amount
	return nil
}

func (l *recordingLedger) Refund(ctx context.Context, userID, sessionID string, amount int64, reason string) error {
	return nil
}

// waitFor polls until cond holds; hooks settle on background goroutines.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func hookUsers() map[string]*share.UserInfo {
	return map[string]*share.UserInfo{
		"alice": {UserID: "alice", Name: "Alice", Token: "tok-a", SeatIndex: 0},
		"bot_x": {UserID: "bot_x", Name: "Bot", SeatIndex: 1, IsBot: true},
	}
}

func TestSettlementLifecycle(t *testing.T) {
	matchRepo := &recordingMatchRepo{}
	ledger := newRecordingLedger()
	params := &share.SessionParams{HandSize: 3, WinsNeeded: 4, Stake: 100, VsBot: true}

	hooks := NewSettlementHooks(matchRepo, ledger, "s1", hookUsers(), params)
	hooks.OnSessionStart()

	waitFor(t, "stake deduction", func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.stakes["alice"] == 100
	})
	if _, staked := ledger.stakes["bot_x"]; staked {
		t.Fatalf("bot seat must not be staked")
	}
	if hooks.RecordIDHex() == "" {
		t.Fatalf("record id should be available after creation")
	}

	hooks.OnRoundEnd(1, "alice", [2]int{70, 50}, 1)
	waitFor(t, "round settlement", func() bool {
		matchRepo.mu.Lock()
		defer matchRepo.mu.Unlock()
		return len(matchRepo.rounds) == 1
	})
	matchRepo.mu.Lock()
	round := matchRepo.rounds[0]
	matchRepo.mu.Unlock()
	if round.WinnerID != "alice" || round.Marks != 1 || round.Points != [2]int{70, 50} {
		t.Fatalf("round settlement mismatch: %+v", round)
	}

	hooks.OnMatchEnd("alice", 0, [2]int{4, 1}, [2]int{300, 180}, false)
	waitFor(t, "final settlement", func() bool {
		matchRepo.mu.Lock()
		defer matchRepo.mu.Unlock()
		return len(matchRepo.finals) == 1
	})
	waitFor(t, "winner payout", func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.payouts["alice"] == 200
	})
	matchRepo.mu.Lock()
	final := matchRepo.finals[0]
	matchRepo.mu.Unlock()
	if final.WinnerID != "alice" || final.Forfeited {
		t.Fatalf("final settlement mismatch: %+v", final)
	}
}

func TestSettlementPracticeSkipsLedger(t *testing.T) {
	matchRepo := &recordingMatchRepo{}
	ledger := newRecordingLedger()
	params := &share.SessionParams{HandSize: 3, WinsNeeded: 4, Stake: 100, Practice: true}

	hooks := NewSettlementHooks(matchRepo, ledger, "s1", hookUsers(), params)
	hooks.OnSessionStart()
	waitFor(t, "record creation", func() bool {
		return hooks.RecordIDHex() != ""
	})

	hooks.OnMatchEnd("alice", 0, [2]int{4, 0}, [2]int{480, 0}, false)
	waitFor(t, "final settlement", func() bool {
		matchRepo.mu.Lock()
		defer matchRepo.mu.Unlock()
		return len(matchRepo.finals) == 1
	})

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.stakes) != 0 || len(ledger.payouts) != 0 {
		t.Fatalf("practice session must not touch the ledger: %v %v", ledger.stakes, ledger.payouts)
	}
}

func TestSettlementBotWinnerGetsNoPayout(t *testing.T) {
	matchRepo := &recordingMatchRepo{}
	ledger := newRecordingLedger()
	params := &share.SessionParams{HandSize: 3, WinsNeeded: 4, Stake: 100, VsBot: true}

	hooks := NewSettlementHooks(matchRepo, ledger, "s1", hookUsers(), params)
	hooks.OnSessionStart()

	hooks.OnMatchEnd("bot_x", 1, [2]int{1, 4}, [2]int{180, 300}, false)
	waitFor(t, "final settlement", func() bool {
		matchRepo.mu.Lock()
		defer matchRepo.mu.Unlock()
		return len(matchRepo.finals) == 1
	})

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.payouts) != 0 {
		t.Fatalf("bot winner must not be paid: %v", ledger.payouts)
	}
}

func TestRestoredHooksSkipCreationAndStake(t *testing.T) {
	matchRepo := &recordingMatchRepo{}
	ledger := newRecordingLedger()
	params := &share.SessionParams{HandSize: 3, WinsNeeded: 4, Stake: 100, VsBot: true}
	recordID := primitive.NewObjectID()

	hooks, err := RestoreSettlementHooks(matchRepo, ledger, "s1", hookUsers(), params, recordID.Hex())
	if err != nil {
		t.Fatalf("restore hooks: %v", err)
	}
	if hooks.RecordIDHex() != recordID.Hex() {
		t.Fatalf("restored record id mismatch")
	}

	// Round settlement must proceed against the existing record.
	hooks.OnRoundEnd(2, "alice", [2]int{65, 55}, 1)
	waitFor(t, "round settlement", func() bool {
		matchRepo.mu.Lock()
		defer matchRepo.mu.Unlock()
		return len(matchRepo.rounds) == 1
	})

	matchRepo.mu.Lock()
	created := matchRepo.created
	matchRepo.mu.Unlock()
	if created != 0 {
		t.Fatalf("restored hooks must not create a new record")
	}
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.stakes) != 0 {
		t.Fatalf("restored hooks must not re-stake: %v", ledger.stakes)
	}
}

func TestRestoreHooksRejectsBadRecordID(t *testing.T) {
	params := &share.SessionParams{HandSize: 3, WinsNeeded: 4}
	if _, err := RestoreSettlementHooks(&recordingMatchRepo{}, nil, "s1", hookUsers(), params, "not-a-hex-id"); err == nil {
		t.Fatalf("malformed record id should be rejected")
	}
}
