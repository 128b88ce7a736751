package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/cache"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/jwts"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/node"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/transfer"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

/*
	1.监听来自 nats 的请求，处理逻辑
		(1)会话管理对象，玩家到会话的路由，收到局内对战消息导航到正确的会话
		(2)收到创建会话请求，分配座位、创建引擎、注册会话
		(3)收到断线重连通知，本地找不到会话时走外部存储的恢复路径
	2.周期性把每个活跃会话的心跳和全量快照刷进外部存储
	3.玩家游戏信息推送的消息总线
*/

// CreateEngineFunc 引擎工厂（由容器注入，避免 game 包依赖具体引擎实现）
type CreateEngineFunc func(w *Worker, params *share.SessionParams) engines.Engine

// RestoreEngineFunc 从外部存储的快照重建引擎
type RestoreEngineFunc func(w *Worker, sessionID string, blob []byte) (engines.Engine, map[string]*share.UserInfo, error)

type Worker struct {
	SessionManager *SessionManager
	MiddleWorker   *node.NatsWorker
	Monitor        *Monitor
	NodeID         string // 当前 game 节点 ID（用于 NATS topic 和心跳归属）

	Store                 repository.SessionStoreRepository
	MatchRecordRepository repository.MatchRecordRepository
	CoinLedgerRepository  repository.CoinLedgerRepository

	tokenCache    *cache.GeneralCache
	createEngine  CreateEngineFunc
	restoreEngine RestoreEngineFunc

	snapshotTTL       time.Duration
	heartbeatTTL      time.Duration
	heartbeatInterval time.Duration
	syncInterval      time.Duration

	destroySessionCh chan string
	destroyMu        sync.Mutex
	destroyClosed    bool
}

// NewWorker 创建 Worker
func NewWorker(nodeID string) *Worker {
	sessionManager := NewSessionManager()
	monitor := NewMonitor(sessionManager, 5*time.Second)

	storeConf := config.GameNodeConfig.StoreConf
	tokenCache, err := cache.NewGeneralCache(1<<20, time.Hour)
	if err != nil {
		log.Warn("创建令牌缓存失败, 每次校验都走签名验证: %v", err)
		tokenCache = nil
	}

	worker := &Worker{
		SessionManager:    sessionManager,
		MiddleWorker:      node.NewNatsWorker(),
		Monitor:           monitor,
		NodeID:            nodeID,
		tokenCache:        tokenCache,
		snapshotTTL:       time.Duration(storeConf.SnapshotTTLMin) * time.Minute,
		heartbeatTTL:      time.Duration(storeConf.HeartbeatTTLSec) * time.Second,
		heartbeatInterval: time.Duration(storeConf.HeartbeatIntervalSec) * time.Second,
		syncInterval:      time.Duration(storeConf.SyncIntervalSec) * time.Second,
		destroySessionCh:  make(chan string, 128),
	}

	go worker.destroySessionLoop()

	return worker
}

// SetRepositories 注入仓储（由容器调用）
func (w *Worker) SetRepositories(store repository.SessionStoreRepository,
	matchRepo repository.MatchRecordRepository, ledger repository.CoinLedgerRepository) {
	w.Store = store
	w.MatchRecordRepository = matchRepo
	w.CoinLedgerRepository = ledger
}

// SetEngineFactories 注入引擎工厂（由容器调用）
func (w *Worker) SetEngineFactories(create CreateEngineFunc, restore RestoreEngineFunc) {
	w.createEngine = create
	w.restoreEngine = restore
}

func (w *Worker) destroySessionLoop() {
	for sessionID := range w.destroySessionCh {
		if sessionID == "" {
			continue
		}
		w.reclaimSession(sessionID)
	}
}

// reclaimSession 正常结束后的收尾：关会话、清外部存储
func (w *Worker) reclaimSession(sessionID string) {
	session, exists := w.SessionManager.GetSession(sessionID)
	if exists {
		userIDs := make([]string, 0, 2)
		session.mu.RLock()
		for userID, userInfo := range session.Users {
			if !userInfo.IsBot {
				userIDs = append(userIDs, userID)
			}
		}
		session.mu.RUnlock()

		if err := w.SessionManager.DeleteSession(sessionID); err != nil {
			log.Warn("Worker destroySessionLoop 删除会话失败: %v", err)
		}

		if w.Store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := w.Store.DeleteSession(ctx, sessionID); err != nil {
				log.Warn("Worker 清理会话外部状态失败: session=%s, %v", sessionID, err)
			}
			for _, userID := range userIDs {
				if err := w.Store.UnmapPlayer(ctx, userID); err != nil {
					log.Warn("Worker 清理玩家路由失败: user=%s, %v", userID, err)
				}
			}
			cancel()
		}
	}
}

// RequestDestroySession 引擎终局时的自毁入口，异步执行
func (w *Worker) RequestDestroySession(sessionID string) {
	if sessionID == "" {
		return
	}

	w.destroyMu.Lock()
	if w.destroyClosed {
		w.destroyMu.Unlock()
		return
	}
	ch := w.destroySessionCh
	w.destroyMu.Unlock()

	select {
	case ch <- sessionID:
	default:
		log.Warn("Worker RequestDestroySession 队列已满, sessionID=%s", sessionID)
	}
}

// Start 启动 Worker
// natsURL: NATS 服务地址，如 "nats://localhost:4222"
func (w *Worker) Start(ctx context.Context, natsURL string) error {
	w.registerHandlers()

	err := w.MiddleWorker.Run(natsURL, w.NodeID)
	if err != nil {
		return fmt.Errorf("启动 NATS 监听失败: %v", err)
	}
	log.Info("Game Worker[%s] 启动 NATS 监听成功, topic: %s", w.NodeID, w.NodeID)

	go w.Monitor.Report(ctx)
	go w.heartbeatLoop(ctx)
	go w.syncLoop(ctx)

	log.Info("Game Worker[%s] 启动成功", w.NodeID)
	return nil
}

// registerHandlers 注册消息处理器
func (w *Worker) registerHandlers() {
	handlers := make(node.SubscriberHandler)

	handlers[transfer.GameSessionCreate] = w.handleCreateSession
	handlers[transfer.GameSessionPlay] = w.handlePlayCard
	handlers[transfer.GameSessionReconnect] = w.handleReconnect

	w.MiddleWorker.RegisterHandlers(handlers)
	log.Info("Game Worker 注册消息处理器完成")
}

// handleCreateSession 创建会话
func (w *Worker) handleCreateSession(message []byte) any {
	req := &transfer.CreateSessionRequest{}
	if err := json.Unmarshal(message, req); err != nil {
		return &transfer.CreateSessionResponse{Error: transfer.ErrBadRequest.Error()}
	}

	params, err := w.sanitizeParams(req)
	if err != nil {
		return &transfer.CreateSessionResponse{Error: err.Error()}
	}

	users := make(map[string]*share.UserInfo, 2)
	for seat, player := range req.Players {
		if err := w.validateToken(player.Token, player.UserID); err != nil {
			return &transfer.CreateSessionResponse{Error: transfer.ErrInvalidToken.Error()}
		}
		userInfo := share.NewUserInfo(player.UserID, player.Name, player.Token, player.ConnectorNodeID)
		userInfo.SeatIndex = seat
		users[player.UserID] = userInfo
	}
	if req.VsBot {
		botID := "bot_" + uuid.NewString()[:8]
		botInfo := share.NewBotInfo(botID, "Bot")
		botInfo.SeatIndex = 1
		users[botID] = botInfo
	}

	sessionID := uuid.NewString()
	engine := w.createEngine(w, params)
	if engine == nil {
		return &transfer.CreateSessionResponse{Error: "创建游戏引擎失败"}
	}

	if _, err := w.SessionManager.RegisterSession(sessionID, users, engine); err != nil {
		engine.Close()
		log.Warn("handleCreateSession: 注册会话失败: %v", err)
		return &transfer.CreateSessionResponse{Error: err.Error()}
	}

	w.persistSessionFacts(sessionID, users, params)

	log.Info("handleCreateSession: 会话 %s 创建成功, vsBot=%v", sessionID, req.VsBot)
	return &transfer.CreateSessionResponse{SessionID: sessionID}
}

// sanitizeParams 校验并补默认值
func (w *Worker) sanitizeParams(req *transfer.CreateSessionRequest) (*share.SessionParams, error) {
	if req.VsBot {
		if len(req.Players) != 1 {
			return nil, fmt.Errorf("人机对局需要恰好一个真人玩家")
		}
	} else if len(req.Players) != 2 {
		return nil, fmt.Errorf("会话需要恰好两个玩家")
	}

	handSize := req.HandSize
	if handSize == 0 {
		handSize = 3
	}
	if handSize != 3 && handSize != 9 {
		return nil, fmt.Errorf("手牌数只支持 3 或 9")
	}

	winsNeeded := req.WinsNeeded
	if winsNeeded <= 0 {
		winsNeeded = config.GameNodeConfig.BiscaConf.DefaultWinsNeeded
	}
	if req.Stake < 0 {
		return nil, fmt.Errorf("入场注不能为负")
	}

	return &share.SessionParams{
		HandSize:      handSize,
		WinsNeeded:    winsNeeded,
		Stake:         req.Stake,
		Practice:      req.Practice,
		VsBot:         req.VsBot,
		BotDifficulty: req.BotDifficulty,
	}, nil
}

// persistSessionFacts 异步落会话元数据、玩家路由和首次心跳
func (w *Worker) persistSessionFacts(sessionID string, users map[string]*share.UserInfo, params *share.SessionParams) {
	if w.Store == nil {
		return
	}
	meta := &repository.SessionMetadata{
		SessionID:  sessionID,
		Stake:      params.Stake,
		Practice:   params.Practice,
		MultiRound: params.WinsNeeded > 1,
		StartTime:  time.Now().UTC(),
	}
	humanIDs := make([]string, 0, 2)
	for userID, userInfo := range users {
		meta.PlayerIDs = append(meta.PlayerIDs, userID)
		if userInfo.IsBot {
			meta.BotSeats = append(meta.BotSeats, userInfo.SeatIndex)
		} else {
			humanIDs = append(humanIDs, userID)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := w.Store.SaveMetadata(ctx, sessionID, meta, w.snapshotTTL); err != nil {
			log.Warn("persistSessionFacts: 保存会话元数据失败: %v", err)
		}
		for _, userID := range humanIDs {
			if err := w.Store.MapPlayerToSession(ctx, userID, sessionID, w.snapshotTTL); err != nil {
				log.Warn("persistSessionFacts: 保存玩家路由失败: user=%s, %v", userID, err)
			}
		}
		if err := w.Store.Heartbeat(ctx, sessionID, w.NodeID, w.heartbeatTTL); err != nil {
			log.Warn("persistSessionFacts: 写首次心跳失败: %v", err)
		}
	}()
}

// handlePlayCard 出牌请求，校验后交给引擎 actor 串行处理
func (w *Worker) handlePlayCard(message []byte) any {
	req := &transfer.PlayCardRequest{}
	if err := json.Unmarshal(message, req); err != nil {
		return &transfer.PlayCardResponse{Error: transfer.ErrBadRequest.Error()}
	}
	if err := w.validateToken(req.Token, req.UserID); err != nil {
		return &transfer.PlayCardResponse{Error: transfer.ErrInvalidToken.Error()}
	}

	session, exists := w.SessionManager.GetPlayerSession(req.UserID)
	if !exists {
		return &transfer.PlayCardResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	event := &share.PlayCardEvent{HandIndex: req.HandIndex}
	event.UserID = req.UserID
	session.Engine.NotifyEvent(event)

	return &transfer.PlayCardResponse{Accepted: true}
}

// validateToken 校验操作方令牌，命中本地缓存时跳过签名验证
func (w *Worker) validateToken(token, userID string) error {
	if token == "" || userID == "" {
		return transfer.ErrInvalidToken
	}
	if w.tokenCache != nil {
		if cached, ok := w.tokenCache.GetString(token); ok {
			if cached == userID {
				return nil
			}
			return transfer.ErrInvalidToken
		}
	}

	tokenUserID, _, err := jwts.ParseSessionToken(token, config.GameNodeConfig.JwtConf.Secret)
	if err != nil {
		return transfer.ErrInvalidToken
	}
	if tokenUserID != userID {
		return transfer.ErrInvalidToken
	}
	if w.tokenCache != nil {
		w.tokenCache.Set(token, userID)
	}
	return nil
}

// heartbeatLoop 周期性给本节点每个活跃会话续心跳
func (w *Worker) heartbeatLoop(ctx context.Context) {
	if w.Store == nil {
		return
	}
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, session := range w.SessionManager.GetAllSessions() {
				hbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := w.Store.Heartbeat(hbCtx, session.ID, w.NodeID, w.heartbeatTTL); err != nil {
					log.Warn("heartbeatLoop: 续心跳失败: session=%s, %v", session.ID, err)
				}
				cancel()
			}
		}
	}
}

// syncLoop 周期性请求每个会话做一次全量快照镜像
// 事件驱动的镜像已经覆盖了局面变化，这里兜底补齐静默期
func (w *Worker) syncLoop(ctx context.Context) {
	if w.Store == nil {
		return
	}
	ticker := time.NewTicker(w.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, session := range w.SessionManager.GetAllSessions() {
				session.Engine.RequestSync()
			}
		}
	}
}

// MirrorSnapshot 异步落会话快照（由引擎调用）
func (w *Worker) MirrorSnapshot(sessionID string, blob []byte) {
	if w.Store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.Store.SaveSnapshot(ctx, sessionID, blob, w.snapshotTTL); err != nil {
			log.Warn("MirrorSnapshot: 保存快照失败: session=%s, %v", sessionID, err)
		}
	}()
}

// PushMessage 推送消息（由 Engine 的 dispatchPush 使用）
func (w *Worker) PushMessage(packet *transfer.ServicePacket) error {
	if packet == nil || packet.Destination == "" {
		return fmt.Errorf("无效的推送包")
	}
	return w.MiddleWorker.PushMessage(packet)
}

// PushConnector 推送消息给指定的 Connector
func (w *Worker) PushConnector(connectorNodeID, route string, userIDs []string, data []byte) error {
	if connectorNodeID == "" {
		return fmt.Errorf("connector topic 不能为空")
	}

	packet := transfer.NewPushPacket(w.NodeID, connectorNodeID, route, userIDs, data)
	err := w.MiddleWorker.PushMessage(packet)
	if err != nil {
		return fmt.Errorf("推送消息失败: %v", err)
	}
	return nil
}

// Close 关闭 Worker
func (w *Worker) Close() {
	w.destroyMu.Lock()
	if !w.destroyClosed {
		close(w.destroySessionCh)
		w.destroyClosed = true
	}
	w.destroyMu.Unlock()

	if w.Monitor != nil {
		w.Monitor.Stop()
	}
	if w.MiddleWorker != nil {
		w.MiddleWorker.Close()
	}
	if w.tokenCache != nil {
		w.tokenCache.Close()
	}
	log.Info("Game Worker[%s] 已关闭", w.NodeID)
}
