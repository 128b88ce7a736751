package game

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/transfer"
)

// reclaimPeek 看门狗决策需要的快照字段
type reclaimPeek struct {
	snapshotPeek
	RecordID string    `json:"recordId"`
	SavedAt  time.Time `json:"savedAt"`
}

// SessionCancelDTO 会话被回收时推给客户端的通知
type SessionCancelDTO struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// Watchdog 孤儿会话看门狗
// 周期性扫描外部存储中的活跃会话集合，回收满足任一条件的会话：
//  1. 快照不存在（只剩集合成员的残留）
//  2. 快照显示对局已结束（正常收尾没跑完）
//  3. 心跳缺失，或快照静默超过失活阈值且不在本节点内存中
//  4. 会话存活超过上限
//
// 回收动作：给真人玩家退入场注、取消对局记录、通知客户端、清理存储
type Watchdog struct {
	worker    *Worker
	store     repository.SessionStoreRepository
	matchRepo repository.MatchRecordRepository
	ledger    repository.CoinLedgerRepository

	interval          time.Duration
	livenessThreshold time.Duration
	maxSessionAge     time.Duration
}

func NewWatchdog(worker *Worker) *Watchdog {
	storeConf := config.GameNodeConfig.StoreConf
	return &Watchdog{
		worker:            worker,
		store:             worker.Store,
		matchRepo:         worker.MatchRecordRepository,
		ledger:            worker.CoinLedgerRepository,
		interval:          time.Duration(storeConf.WatchdogIntervalSec) * time.Second,
		livenessThreshold: time.Duration(storeConf.LivenessThresholdSec) * time.Second,
		maxSessionAge:     time.Duration(storeConf.MaxSessionAgeMin) * time.Minute,
	}
}

func (wd *Watchdog) Run(ctx context.Context) {
	if wd.store == nil {
		log.Warn("Watchdog 没有外部存储, 不启动")
		return
	}
	ticker := time.NewTicker(wd.interval)
	defer ticker.Stop()

	log.Info("Watchdog 启动, 扫描周期 %v", wd.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wd.Scan(ctx)
		}
	}
}

// Scan 单轮扫描，可单独调用
func (wd *Watchdog) Scan(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sessionIDs, err := wd.store.ListActiveSessions(scanCtx)
	if err != nil {
		log.Warn("Watchdog: 枚举活跃会话失败: %v", err)
		return
	}

	for _, sessionID := range sessionIDs {
		wd.inspect(scanCtx, sessionID)
	}
}

func (wd *Watchdog) inspect(ctx context.Context, sessionID string) {
	blob, err := wd.store.LoadSnapshot(ctx, sessionID)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		wd.reclaim(ctx, sessionID, nil, "快照缺失")
		return
	}
	if err != nil {
		log.Warn("Watchdog: 读快照失败: session=%s, %v", sessionID, err)
		return
	}

	peek := &reclaimPeek{}
	if err := json.Unmarshal(blob, peek); err != nil {
		log.Warn("Watchdog: 解析快照失败: session=%s, %v", sessionID, err)
		wd.reclaim(ctx, sessionID, nil, "快照损坏")
		return
	}

	// 对局已正常结束，只做存储 GC，不退款不取消记录
	if peek.GameOver {
		wd.gcFinished(ctx, sessionID, peek)
		return
	}

	ownedLocally := false
	if wd.worker != nil {
		_, ownedLocally = wd.worker.SessionManager.GetSession(sessionID)
	}

	if _, err := wd.store.GetHeartbeat(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrHeartbeatMissing) && !ownedLocally {
			wd.reclaim(ctx, sessionID, peek, "持有节点心跳丢失")
			return
		}
		if !errors.Is(err, repository.ErrHeartbeatMissing) {
			log.Warn("Watchdog: 读心跳失败: session=%s, %v", sessionID, err)
		}
	}

	if !ownedLocally && !peek.SavedAt.IsZero() && time.Since(peek.SavedAt) > wd.livenessThreshold {
		wd.reclaim(ctx, sessionID, peek, "快照静默超过失活阈值")
		return
	}

	if meta, err := wd.store.LoadMetadata(ctx, sessionID); err == nil {
		if time.Since(meta.StartTime) > wd.maxSessionAge {
			wd.reclaim(ctx, sessionID, peek, "会话存活超过上限")
		}
	}
}

// reclaim 回收孤儿会话
// 各步骤相互独立、尽力而为：一步失败不拦住后面的清理
func (wd *Watchdog) reclaim(ctx context.Context, sessionID string, peek *reclaimPeek, reason string) {
	log.Info("Watchdog: 回收会话 %s: %s", sessionID, reason)

	if wd.worker != nil {
		if _, exists := wd.worker.SessionManager.GetSession(sessionID); exists {
			if err := wd.worker.SessionManager.DeleteSession(sessionID); err != nil {
				log.Warn("Watchdog: 删除本地会话失败: %v", err)
			}
		}
	}

	meta, metaErr := wd.store.LoadMetadata(ctx, sessionID)
	if metaErr != nil && !errors.Is(metaErr, repository.ErrMetadataNotFound) {
		log.Warn("Watchdog: 读会话元数据失败: session=%s, %v", sessionID, metaErr)
	}

	wd.refundPlayers(ctx, sessionID, meta, peek)
	wd.cancelRecord(ctx, sessionID, peek, reason)
	wd.notifyCancel(sessionID, peek, reason)
	wd.cleanupStore(ctx, sessionID, meta, peek)
}

// refundPlayers 给真人玩家退入场注，练习局跳过
func (wd *Watchdog) refundPlayers(ctx context.Context, sessionID string, meta *repository.SessionMetadata, peek *reclaimPeek) {
	if wd.ledger == nil || meta == nil || meta.Practice || meta.Stake <= 0 {
		return
	}
	for _, userID := range wd.humanPlayers(meta, peek) {
		if err := wd.ledger.Refund(ctx, userID, sessionID, meta.Stake, "session reclaimed"); err != nil {
			log.Error("Watchdog: 退款失败: user=%s, session=%s, %v", userID, sessionID, err)
		}
	}
}

func (wd *Watchdog) cancelRecord(ctx context.Context, sessionID string, peek *reclaimPeek, reason string) {
	if wd.matchRepo == nil || peek == nil || peek.RecordID == "" {
		return
	}
	recordID, err := primitive.ObjectIDFromHex(peek.RecordID)
	if err != nil {
		log.Warn("Watchdog: 非法的记录 ID: %s", peek.RecordID)
		return
	}
	if err := wd.matchRepo.CancelRecord(ctx, recordID, reason); err != nil {
		log.Error("Watchdog: 取消对局记录失败: session=%s, %v", sessionID, err)
	}
}

// notifyCancel 按 connector 分组通知还在线的真人玩家
func (wd *Watchdog) notifyCancel(sessionID string, peek *reclaimPeek, reason string) {
	if wd.worker == nil || peek == nil {
		return
	}
	data, err := json.Marshal(&SessionCancelDTO{SessionID: sessionID, Reason: reason})
	if err != nil {
		return
	}

	connectorGroups := make(map[string][]string)
	for _, player := range peek.Players {
		if player.IsBot || player.ConnectorNodeID == "" {
			continue
		}
		connectorGroups[player.ConnectorNodeID] = append(connectorGroups[player.ConnectorNodeID], player.UserID)
	}
	for connectorNodeID, userIDs := range connectorGroups {
		if err := wd.worker.PushConnector(connectorNodeID, transfer.GameplaySessionCancel, userIDs, data); err != nil {
			log.Warn("Watchdog: 通知会话回收失败: connector=%s, %v", connectorNodeID, err)
		}
	}
}

func (wd *Watchdog) cleanupStore(ctx context.Context, sessionID string, meta *repository.SessionMetadata, peek *reclaimPeek) {
	if err := wd.store.DeleteSession(ctx, sessionID); err != nil {
		log.Warn("Watchdog: 清理会话存储失败: session=%s, %v", sessionID, err)
	}
	for _, userID := range wd.humanPlayers(meta, peek) {
		if err := wd.store.UnmapPlayer(ctx, userID); err != nil {
			log.Warn("Watchdog: 清理玩家路由失败: user=%s, %v", userID, err)
		}
	}
}

// gcFinished 已结束会话的存储 GC
func (wd *Watchdog) gcFinished(ctx context.Context, sessionID string, peek *reclaimPeek) {
	log.Info("Watchdog: 清理已结束的会话 %s", sessionID)
	wd.cleanupStore(ctx, sessionID, nil, peek)
}

// humanPlayers 从元数据和快照里凑出真人玩家列表
// 两个来源可能只有一个可用
func (wd *Watchdog) humanPlayers(meta *repository.SessionMetadata, peek *reclaimPeek) []string {
	humans := make([]string, 0, 2)
	seen := make(map[string]bool, 2)

	if peek != nil {
		for _, player := range peek.Players {
			if player.IsBot || player.UserID == "" || seen[player.UserID] {
				continue
			}
			seen[player.UserID] = true
			humans = append(humans, player.UserID)
		}
	}
	if meta != nil {
		for _, userID := range meta.PlayerIDs {
			// 机器人座位按 "bot_" 前缀分配 ID，不参与退款
			if userID == "" || seen[userID] || strings.HasPrefix(userID, "bot_") {
				continue
			}
			seen[userID] = true
			humans = append(humans, userID)
		}
	}
	return humans
}
