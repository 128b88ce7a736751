package bisca

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// PlayerSnapshot 单座位的全量状态
type PlayerSnapshot struct {
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Seat            int    `json:"seat"`
	IsBot           bool   `json:"isBot"`
	Hand            []Card `json:"hand"`
	Score           int    `json:"score"`
	Marks           int    `json:"marks"`
	TotalPoints     int    `json:"totalPoints"`
	ConnectorNodeID string `json:"connectorNodeId"`
	Online          bool   `json:"online"`
}

// SessionSnapshot 会话的全量镜像，既是外部存储的落盘格式也是客户端快照格式
// 永远整体覆盖写，不做增量
type SessionSnapshot struct {
	SessionID     string            `json:"sessionId"`
	HandSize      int               `json:"handSize"`
	WinsNeeded    int               `json:"winsNeeded"`
	RoundNumber   int               `json:"roundNumber"`
	Players       [2]PlayerSnapshot `json:"players"`
	Deck          []Card            `json:"deck"`
	TrumpCard     *Card             `json:"trumpCard"`
	TrumpSuit     Suit              `json:"trumpSuit"`
	Table         []TableMove       `json:"table"`
	Turn          int               `json:"turn"`
	Leader        int               `json:"leader"`
	RoundOver     bool              `json:"roundOver"`
	GameOver      bool              `json:"gameOver"`
	Forfeited     bool              `json:"forfeited"`
	Practice      bool              `json:"practice"`
	VsBot         bool              `json:"vsBot"`
	BotDifficulty int               `json:"botDifficulty"`
	Stake         int64             `json:"stake"`
	RecordID      string            `json:"recordId"`
	StatusLog     []string          `json:"statusLog"`
	SavedAt       time.Time         `json:"savedAt"`
}

// buildSnapshot 只在 actor 线程中调用
func (eg *Bisca2p) buildSnapshot() *SessionSnapshot {
	snapshot := &SessionSnapshot{
		SessionID:     eg.SessionID,
		HandSize:      eg.Params.HandSize,
		WinsNeeded:    eg.Params.WinsNeeded,
		RoundNumber:   eg.RoundNumber,
		Table:         append([]TableMove(nil), eg.Table...),
		Turn:          eg.TurnManager.GetCurrentSeat(),
		Leader:        eg.Leader,
		RoundOver:     eg.roundOver,
		GameOver:      eg.gameOver,
		Forfeited:     eg.forfeited,
		Practice:      eg.Params.Practice,
		VsBot:         eg.Params.VsBot,
		BotDifficulty: eg.Params.BotDifficulty,
		Stake:         eg.Params.Stake,
		StatusLog:     append([]string(nil), eg.StatusLog...),
		SavedAt:       time.Now().UTC(),
	}
	if eg.Hooks != nil {
		snapshot.RecordID = eg.Hooks.RecordIDHex()
	}
	if eg.DeckManager != nil {
		snapshot.Deck = append([]Card(nil), eg.DeckManager.deck...)
		snapshot.TrumpSuit = eg.DeckManager.trumpSuit
		if eg.DeckManager.trumpCard != nil {
			trump := *eg.DeckManager.trumpCard
			snapshot.TrumpCard = &trump
		}
	}
	for seat, p := range eg.Players {
		if p == nil {
			continue
		}
		ps := PlayerSnapshot{
			UserID:      p.UserID,
			Seat:        p.Seat,
			IsBot:       p.IsBot,
			Hand:        append([]Card(nil), p.Hand...),
			Score:       p.Score,
			Marks:       p.Marks,
			TotalPoints: p.TotalPoints,
		}
		if userInfo, exists := eg.UserMap[p.UserID]; exists {
			ps.Name = userInfo.Name
			ps.ConnectorNodeID = userInfo.ConnectorNodeID
			ps.Online = userInfo.IsOnline
		}
		snapshot.Players[seat] = ps
	}
	return snapshot
}

// mirrorState 异步镜像到外部存储，失败只记日志
func (eg *Bisca2p) mirrorState() {
	if eg.Worker == nil {
		return
	}
	blob, err := json.Marshal(eg.buildSnapshot())
	if err != nil {
		log.Error("mirrorState: 序列化快照失败: session=%s, %v", eg.SessionID, err)
		return
	}
	eg.Worker.MirrorSnapshot(eg.SessionID, blob)
}

// ParseSnapshot 反序列化外部存储中的会话镜像
func ParseSnapshot(blob []byte) (*SessionSnapshot, error) {
	snapshot := &SessionSnapshot{}
	if err := json.Unmarshal(blob, snapshot); err != nil {
		return nil, fmt.Errorf("解析会话快照失败: %v", err)
	}
	return snapshot, nil
}

// RestoreBisca2p 从快照重建引擎（崩溃恢复路径）
// 重建后 actor 已启动但定时器未上弦，由 Resume 事件续跑
func RestoreBisca2p(worker *game.Worker, sessionID string, blob []byte) (engines.Engine, map[string]*share.UserInfo, error) {
	snapshot, err := ParseSnapshot(blob)
	if err != nil {
		return nil, nil, err
	}
	if snapshot.GameOver {
		return nil, nil, fmt.Errorf("会话 %s 已结束，不可恢复", sessionID)
	}

	params := &share.SessionParams{
		HandSize:      snapshot.HandSize,
		WinsNeeded:    snapshot.WinsNeeded,
		Stake:         snapshot.Stake,
		Practice:      snapshot.Practice,
		VsBot:         snapshot.VsBot,
		BotDifficulty: snapshot.BotDifficulty,
	}

	userMap := make(map[string]*share.UserInfo, 2)
	eg := NewBisca2p(worker, params)
	eg.SessionID = snapshot.SessionID
	eg.RoundNumber = snapshot.RoundNumber
	eg.Leader = snapshot.Leader
	eg.Table = append(eg.Table[:0], snapshot.Table...)
	eg.roundOver = snapshot.RoundOver
	eg.forfeited = snapshot.Forfeited
	eg.StatusLog = append([]string(nil), snapshot.StatusLog...)

	for seat, ps := range snapshot.Players {
		userInfo := &share.UserInfo{
			UserID:          ps.UserID,
			Name:            ps.Name,
			ConnectorNodeID: ps.ConnectorNodeID,
			IsOnline:        ps.Online,
			IsBot:           ps.IsBot,
			SeatIndex:       ps.Seat,
		}
		userMap[ps.UserID] = userInfo

		player := NewPlayerImage(ps.UserID, ps.Seat, ps.IsBot)
		player.Hand = append(player.Hand, ps.Hand...)
		player.Score = ps.Score
		player.Marks = ps.Marks
		player.TotalPoints = ps.TotalPoints
		eg.Players[seat] = player
	}
	eg.UserMap = userMap

	eg.DeckManager = NewDeckManager()
	var trump *Card
	if snapshot.TrumpCard != nil {
		c := *snapshot.TrumpCard
		trump = &c
	}
	eg.DeckManager.restore(snapshot.Deck, trump, snapshot.TrumpSuit)

	eg.startActor()
	eg.TurnManager.TurnPointer = snapshot.Turn
	eg.State = engines.GameInProgress

	if worker != nil && worker.MatchRecordRepository != nil && snapshot.RecordID != "" {
		eg.Hooks, err = RestoreSettlementHooks(worker.MatchRecordRepository, worker.CoinLedgerRepository, sessionID, userMap, params, snapshot.RecordID)
		if err != nil {
			log.Warn("RestoreBisca2p: 恢复结算挂钩失败: %v", err)
		}
	}

	log.Info("会话 %s 从快照恢复, 回合 %d, 当前座位 %d", sessionID, snapshot.RoundNumber, snapshot.Turn)
	eg.NotifyEvent(&ResumeEvent{})
	return eg, userMap, nil
}
