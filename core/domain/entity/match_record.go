package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRecord 对局记录元数据（聚合根）
// 存储对局基本信息、玩家信息、每回合结果和最终结果
type MatchRecord struct {
	ID          primitive.ObjectID `bson:"_id"`
	SessionID   string             `bson:"session_id"`
	GameType    string             `bson:"game_type"` // "bisca_2p"
	Players     []PlayerInfo       `bson:"players"`
	HandSize    int                `bson:"hand_size"`    // 3 或 9
	WinsNeeded  int                `bson:"wins_needed"`  // 胜局目标
	Stake       int64              `bson:"stake"`        // 单人入场注
	Practice    bool               `bson:"practice"`     // 练习局不产生账务
	Rounds      []RoundResult      `bson:"rounds"`       // 每回合结算
	StartTime   time.Time          `bson:"start_time"`
	EndTime     time.Time          `bson:"end_time"`
	Duration    int                `bson:"duration"` // 秒
	FinalResult *MatchFinalResult  `bson:"final_result"`
	Status      string             `bson:"status"` // "in_progress", "completed", "cancelled"
	CreatedAt   time.Time          `bson:"created_at"`
}

// PlayerInfo 对局玩家信息
type PlayerInfo struct {
	UserID string `bson:"user_id"`
	Seat   int    `bson:"seat"` // 0 或 1
	Name   string `bson:"name,omitempty"`
	IsBot  bool   `bson:"is_bot"`
}

// RoundResult 单回合结算
type RoundResult struct {
	RoundNumber int       `bson:"round_number"`
	WinnerID    string    `bson:"winner_id"` // 平局时为空
	Points      [2]int    `bson:"points"`    // 按座位
	Marks       int       `bson:"marks"`     // 本回合赢得的划数
	EndedAt     time.Time `bson:"ended_at"`
}

// MatchFinalResult 对局最终结果
type MatchFinalResult struct {
	WinnerID    string `bson:"winner_id"`
	Marks       [2]int `bson:"marks"`        // 按座位
	TotalPoints [2]int `bson:"total_points"` // 全场累计点数，按座位
	Forfeited   bool   `bson:"forfeited"`    // 是否因超时判负结束
}

// NewMatchRecord 创建对局记录
func NewMatchRecord(sessionID string, players []PlayerInfo, handSize, winsNeeded int, stake int64, practice bool) *MatchRecord {
	return &MatchRecord{
		ID:         primitive.NewObjectID(),
		SessionID:  sessionID,
		GameType:   "bisca_2p",
		Players:    players,
		HandSize:   handSize,
		WinsNeeded: winsNeeded,
		Stake:      stake,
		Practice:   practice,
		Rounds:     make([]RoundResult, 0, 8),
		StartTime:  time.Now(),
		Status:     "in_progress",
		CreatedAt:  time.Now(),
	}
}

// CompleteMatch 完成对局（设置最终结果）
func (mr *MatchRecord) CompleteMatch(finalResult *MatchFinalResult) {
	mr.EndTime = time.Now()
	mr.Duration = int(mr.EndTime.Sub(mr.StartTime).Seconds())
	mr.FinalResult = finalResult
	mr.Status = "completed"
}

// CancelMatch 取消对局（看门狗回收或异常中止）
func (mr *MatchRecord) CancelMatch() {
	mr.EndTime = time.Now()
	mr.Duration = int(mr.EndTime.Sub(mr.StartTime).Seconds())
	mr.Status = "cancelled"
}
