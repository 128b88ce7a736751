package bisca

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

const settleTimeout = 30 * time.Second

// SettlementHooks 对局的记录与账务挂钩
// 引擎在会话创建、回合结束、对局结束三个节点回调；
// 所有落库都在独立 goroutine 中做，失败只记日志，不阻塞 actor 循环
type SettlementHooks struct {
	matchRepo repository.MatchRecordRepository
	ledger    repository.CoinLedgerRepository

	sessionID string
	practice  bool
	stake     int64

	seats  [2]seatBilling
	record *entity.MatchRecord

	mu       sync.Mutex
	recordID primitive.ObjectID
	created  chan struct{} // 记录创建完成后关闭
}

type seatBilling struct {
	userID string
	token  string
	isBot  bool
}

func NewSettlementHooks(matchRepo repository.MatchRecordRepository, ledger repository.CoinLedgerRepository,
	sessionID string, userMap map[string]*share.UserInfo, params *share.SessionParams) *SettlementHooks {

	hooks := &SettlementHooks{
		matchRepo: matchRepo,
		ledger:    ledger,
		sessionID: sessionID,
		practice:  params.Practice,
		stake:     params.Stake,
		created:   make(chan struct{}),
	}

	players := make([]entity.PlayerInfo, 0, 2)
	for _, userInfo := range userMap {
		hooks.seats[userInfo.SeatIndex] = seatBilling{
			userID: userInfo.UserID,
			token:  userInfo.Token,
			isBot:  userInfo.IsBot,
		}
		players = append(players, entity.PlayerInfo{
			UserID: userInfo.UserID,
			Seat:   userInfo.SeatIndex,
			Name:   userInfo.Name,
			IsBot:  userInfo.IsBot,
		})
	}
	hooks.record = entity.NewMatchRecord(sessionID, players, params.HandSize, params.WinsNeeded, params.Stake, params.Practice)
	return hooks
}

// RestoreSettlementHooks 快照恢复时重挂已有的对局记录
// 记录已经存在，入场注也已经扣过，不再重复创建和扣注
func RestoreSettlementHooks(matchRepo repository.MatchRecordRepository, ledger repository.CoinLedgerRepository,
	sessionID string, userMap map[string]*share.UserInfo, params *share.SessionParams, recordIDHex string) (*SettlementHooks, error) {

	recordID, err := primitive.ObjectIDFromHex(recordIDHex)
	if err != nil {
		return nil, err
	}
	hooks := NewSettlementHooks(matchRepo, ledger, sessionID, userMap, params)
	hooks.recordID = recordID
	hooks.record.ID = recordID
	close(hooks.created)
	return hooks, nil
}

// RecordIDHex 对局记录 ID；记录尚未落库时返回空串
func (hooks *SettlementHooks) RecordIDHex() string {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.recordID.IsZero() {
		return ""
	}
	return hooks.recordID.Hex()
}

// OnSessionStart 会话创建：落对局记录，扣真人玩家的入场注
func (hooks *SettlementHooks) OnSessionStart() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()

		token := hooks.operatorToken()
		recordID, err := hooks.matchRepo.CreateMatchRecord(ctx, token, hooks.record)
		if err != nil {
			log.Error("OnSessionStart: 创建对局记录失败: session=%s, %v", hooks.sessionID, err)
			close(hooks.created)
			return
		}
		hooks.mu.Lock()
		hooks.recordID = recordID
		hooks.mu.Unlock()
		close(hooks.created)

		if hooks.practice || hooks.ledger == nil {
			return
		}
		for _, seat := range hooks.seats {
			if seat.isBot || seat.userID == "" {
				continue
			}
			if err := hooks.ledger.Stake(ctx, seat.token, seat.userID, hooks.sessionID, hooks.stake); err != nil {
				log.Error("OnSessionStart: 扣入场注失败: user=%s, %v", seat.userID, err)
			}
		}
	}()
}

// OnRoundEnd 回合结束：追加回合结算
func (hooks *SettlementHooks) OnRoundEnd(roundNumber int, winnerID string, points [2]int, marks int) {
	round := entity.RoundResult{
		RoundNumber: roundNumber,
		WinnerID:    winnerID,
		Points:      points,
		Marks:       marks,
		EndedAt:     time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()

		recordID, ok := hooks.waitRecordID(ctx)
		if !ok {
			log.Warn("OnRoundEnd: 对局记录不可用, 丢弃回合结算: session=%s, round=%d", hooks.sessionID, roundNumber)
			return
		}
		if err := hooks.matchRepo.SettleRound(ctx, hooks.operatorToken(), recordID, round); err != nil {
			log.Error("OnRoundEnd: 回合结算落库失败: session=%s, round=%d, %v", hooks.sessionID, roundNumber, err)
		}
	}()
}

// OnMatchEnd 对局结束：落最终结果，给赢家入账
func (hooks *SettlementHooks) OnMatchEnd(winnerID string, winnerSeat int, marks [2]int, totals [2]int, forfeited bool) {
	result := &entity.MatchFinalResult{
		WinnerID:    winnerID,
		Marks:       marks,
		TotalPoints: totals,
		Forfeited:   forfeited,
	}
	winner := hooks.seats[winnerSeat]
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()

		recordID, ok := hooks.waitRecordID(ctx)
		if !ok {
			log.Warn("OnMatchEnd: 对局记录不可用, 丢弃最终结算: session=%s", hooks.sessionID)
			return
		}
		if err := hooks.matchRepo.SettleMatch(ctx, hooks.operatorToken(), recordID, result); err != nil {
			log.Error("OnMatchEnd: 最终结算落库失败: session=%s, %v", hooks.sessionID, err)
		}

		if hooks.practice || hooks.ledger == nil || winner.isBot {
			return
		}
		// 赢家通吃两份入场注
		if err := hooks.ledger.Payout(ctx, winner.token, winner.userID, hooks.sessionID, hooks.stake*2); err != nil {
			log.Error("OnMatchEnd: 奖励入账失败: user=%s, %v", winner.userID, err)
		}
	}()
}

// waitRecordID 等待记录创建完成；创建失败或超时返回 false
func (hooks *SettlementHooks) waitRecordID(ctx context.Context) (primitive.ObjectID, bool) {
	select {
	case <-hooks.created:
	case <-ctx.Done():
		return primitive.NilObjectID, false
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.recordID.IsZero() {
		return primitive.NilObjectID, false
	}
	return hooks.recordID, true
}

// operatorToken 记录系统调用携带的令牌，用第一个真人玩家的
func (hooks *SettlementHooks) operatorToken() string {
	for _, seat := range hooks.seats {
		if !seat.isBot && seat.token != "" {
			return seat.token
		}
	}
	return ""
}
