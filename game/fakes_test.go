package game

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// fakeEngine records lifecycle calls and delivered events.
type fakeEngine struct {
	mu          sync.Mutex
	initialized bool
	closed      bool
	events      []share.GameEvent
}

func (f *fakeEngine) InitializeEngine(sessionID string, users map[string]*share.UserInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *fakeEngine) NotifyEvent(event share.GameEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEngine) RequestSync() {}
func (f *fakeEngine) Terminate()   {}

func (f *fakeEngine) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeEngine) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.GetEventType())
	}
	return types
}

// fakeSessionStore is an in-memory SessionStoreRepository.
type fakeSessionStore struct {
	mu         sync.Mutex
	snapshots  map[string][]byte
	active     map[string]bool
	heartbeats map[string]string
	metadata   map[string]*repository.SessionMetadata
	playerMap  map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		snapshots:  make(map[string][]byte),
		active:     make(map[string]bool),
		heartbeats: make(map[string]string),
		metadata:   make(map[string]*repository.SessionMetadata),
		playerMap:  make(map[string]string),
	}
}

func (s *fakeSessionStore) SaveSnapshot(ctx context.Context, sessionID string, blob []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sessionID] = blob
	s.active[sessionID] = true
	return nil
}

func (s *fakeSessionStore) LoadSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.snapshots[sessionID]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return blob, nil
}

func (s *fakeSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	delete(s.active, sessionID)
	delete(s.heartbeats, sessionID)
	delete(s.metadata, sessionID)
	return nil
}

func (s *fakeSessionStore) MapPlayerToSession(ctx context.Context, playerID, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerMap[playerID] = sessionID
	return nil
}

func (s *fakeSessionStore) GetSessionForPlayer(ctx context.Context, playerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.playerMap[playerID]
	if !ok {
		return "", repository.ErrPlayerNotMapped
	}
	return sessionID, nil
}

func (s *fakeSessionStore) UnmapPlayer(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playerMap, playerID)
	return nil
}

func (s *fakeSessionStore) Heartbeat(ctx context.Context, sessionID, ownerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats[sessionID] = ownerID
	return nil
}

func (s *fakeSessionStore) GetHeartbeat(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ownerID, ok := s.heartbeats[sessionID]
	if !ok {
		return "", repository.ErrHeartbeatMissing
	}
	return ownerID, nil
}

func (s *fakeSessionStore) SaveMetadata(ctx context.Context, sessionID string, meta *repository.SessionMetadata, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[sessionID] = meta
	return nil
}

func (s *fakeSessionStore) LoadMetadata(ctx context.Context, sessionID string) (*repository.SessionMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metadata[sessionID]
	if !ok {
		return nil, repository.ErrMetadataNotFound
	}
	return meta, nil
}

func (s *fakeSessionStore) ListActiveSessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeMatchRepo records cancellations.
type fakeMatchRepo struct {
	mu        sync.Mutex
	cancelled []primitive.ObjectID
}

func (r *fakeMatchRepo) CreateMatchRecord(ctx context.Context, token string, record *entity.MatchRecord) (primitive.ObjectID, error) {
	return record.ID, nil
}

func (r *fakeMatchRepo) SettleRound(ctx context.Context, token string, recordID primitive.ObjectID, round entity.RoundResult) error {
	return nil
}

func (r *fakeMatchRepo) SettleMatch(ctx context.Context, token string, recordID primitive.ObjectID, result *entity.MatchFinalResult) error {
	return nil
}

func (r *fakeMatchRepo) CancelRecord(ctx context.Context, recordID primitive.ObjectID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, recordID)
	return nil
}

func (r *fakeMatchRepo) FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error) {
	return nil, repository.ErrMatchRecordNotFound
}

// fakeLedger records refunds per user.
type fakeLedger struct {
	mu      sync.Mutex
	refunds map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{refunds: make(map[string]int64)}
}

func (l *fakeLedger) Stake(ctx context.Context, token, userID, sessionID string, amount int64) error {
	return nil
}

func (l *fakeLedger) Payout(ctx context.Context, token, userID, sessionID string, amount int64) error {
	return nil
}

func (l *fakeLedger) Refund(ctx context.Context, userID, sessionID string, amount int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refunds[userID] += amount
	return nil
}
