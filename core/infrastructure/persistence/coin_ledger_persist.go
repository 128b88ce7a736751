package persistence

import (
	"context"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/database"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

type CoinLedgerRepository struct {
	mongo *database.MongoManager
}

func NewCoinLedgerRepository(mongo *database.MongoManager) repository.CoinLedgerRepository {
	return &CoinLedgerRepository{mongo: mongo}
}

// Stake 扣除入场注，记负数流水
func (r *CoinLedgerRepository) Stake(ctx context.Context, token string, userID, sessionID string, amount int64) error {
	return r.appendTxn(ctx, entity.NewCoinTxn(userID, sessionID, entity.TxnStake, -amount, ""))
}

// Payout 对局结束给赢家入账
func (r *CoinLedgerRepository) Payout(ctx context.Context, token string, userID, sessionID string, amount int64) error {
	return r.appendTxn(ctx, entity.NewCoinTxn(userID, sessionID, entity.TxnPayout, amount, ""))
}

// Refund 会话被回收时退还入场注，看门狗发起，不携带玩家令牌
func (r *CoinLedgerRepository) Refund(ctx context.Context, userID, sessionID string, amount int64, reason string) error {
	return r.appendTxn(ctx, entity.NewCoinTxn(userID, sessionID, entity.TxnRefund, amount, reason))
}

func (r *CoinLedgerRepository) appendTxn(ctx context.Context, txn *entity.CoinTxn) error {
	collection := r.mongo.Db.Collection("coin_txns")

	_, err := collection.InsertOne(ctx, txn)
	if err != nil {
		log.Error("记账务流水失败: user=%s, session=%s, type=%s, err=%v",
			txn.UserID, txn.SessionID, txn.Type, err)
		return ErrMongodb
	}

	log.Debug("账务流水已记录: user=%s, session=%s, type=%s, amount=%d",
		txn.UserID, txn.SessionID, txn.Type, txn.Amount)
	return nil
}
