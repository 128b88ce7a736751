package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
)

// MatchRecordRepository 对局记录仓储接口
// 这是引擎面向外部记录系统的唯一入口，所有调用都携带操作方玩家的令牌；
// 失败只记日志，游戏继续以内存状态推进
type MatchRecordRepository interface {
	// CreateMatchRecord 会话创建时写入对局记录，返回记录 ID
	CreateMatchRecord(ctx context.Context, token string, record *entity.MatchRecord) (primitive.ObjectID, error)

	// SettleRound 回合结束时追加一条回合结算
	SettleRound(ctx context.Context, token string, recordID primitive.ObjectID, round entity.RoundResult) error

	// SettleMatch 对局结束时落最终结果
	SettleMatch(ctx context.Context, token string, recordID primitive.ObjectID, result *entity.MatchFinalResult) error

	// CancelRecord 看门狗回收会话时取消记录
	CancelRecord(ctx context.Context, recordID primitive.ObjectID, reason string) error

	// FindMatchRecord 根据 ID 查找对局记录
	FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error)
}

// CoinLedgerRepository 金币账务仓储接口
// 引擎只发起入场注、奖励、退款三类调用
type CoinLedgerRepository interface {
	// Stake 扣除入场注
	Stake(ctx context.Context, token string, userID, sessionID string, amount int64) error

	// Payout 对局结束给赢家入账
	Payout(ctx context.Context, token string, userID, sessionID string, amount int64) error

	// Refund 会话被回收时退还入场注，不要求令牌（看门狗发起）
	Refund(ctx context.Context, userID, sessionID string, amount int64, reason string) error
}
