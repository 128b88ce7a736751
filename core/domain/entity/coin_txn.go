package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 账务流水类型
const (
	TxnStake  = "stake"  // 入场注
	TxnPayout = "payout" // 对局奖励
	TxnRefund = "refund" // 会话回收退款
)

// CoinTxn 金币账务流水
// 引擎只产生三类流水：入场注、赢家奖励、看门狗退款
type CoinTxn struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	SessionID string             `bson:"session_id"`
	Type      string             `bson:"type"`
	Amount    int64              `bson:"amount"` // 正为入账，负为出账
	Reason    string             `bson:"reason,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func NewCoinTxn(userID, sessionID, txnType string, amount int64, reason string) *CoinTxn {
	return &CoinTxn{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		SessionID: sessionID,
		Type:      txnType,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}
