package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/transfer"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// snapshotPeek 不解析整个快照，只取恢复决策需要的字段
// 字段名必须与引擎快照的 JSON 标签一致
type snapshotPeek struct {
	GameOver bool `json:"gameOver"`
	Players  []struct {
		UserID          string `json:"userId"`
		ConnectorNodeID string `json:"connectorNodeId"`
		IsBot           bool   `json:"isBot"`
	} `json:"players"`
}

func peekSnapshot(blob []byte) (*snapshotPeek, error) {
	peek := &snapshotPeek{}
	if err := json.Unmarshal(blob, peek); err != nil {
		return nil, fmt.Errorf("解析快照失败: %v", err)
	}
	return peek, nil
}

// handleReconnect 断线重连
// 先查本地会话；本地没有就走外部存储的崩溃恢复路径：
// 定位玩家路由 -> 读快照 -> 拒掉已结束的会话 -> 重建引擎 -> 收养会话
func (w *Worker) handleReconnect(message []byte) any {
	req := &transfer.ReconnectRequest{}
	if err := json.Unmarshal(message, req); err != nil {
		return &transfer.ReconnectResponse{Error: transfer.ErrBadRequest.Error()}
	}
	if err := w.validateToken(req.Token, req.UserID); err != nil {
		return &transfer.ReconnectResponse{Error: transfer.ErrInvalidToken.Error()}
	}

	// 本地路径：会话还活在本节点内存里
	if session, exists := w.SessionManager.GetPlayerSession(req.UserID); exists {
		userInfo, found := session.GetPlayer(req.UserID)
		if !found {
			return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
		}

		event := &share.ReconnectEvent{ConnectorNodeID: req.ConnectorNodeID}
		event.UserID = req.UserID
		session.Engine.NotifyEvent(event)
		w.refreshPlayerMapping(req.UserID, session.ID)

		log.Info("handleReconnect: 玩家 %s 重连到本地会话 %s", req.UserID, session.ID)
		return &transfer.ReconnectResponse{
			SessionID:  session.ID,
			PlayerRole: playerRole(userInfo.SeatIndex),
		}
	}

	return w.recoverFromStore(req)
}

// recoverFromStore 崩溃恢复路径
func (w *Worker) recoverFromStore(req *transfer.ReconnectRequest) any {
	if w.Store == nil || w.restoreEngine == nil {
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionID, err := w.Store.GetSessionForPlayer(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrPlayerNotMapped) {
			log.Warn("recoverFromStore: 查玩家路由失败: user=%s, %v", req.UserID, err)
		}
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	// 心跳还活着说明会话由别的节点持有，不能在这里收养
	if ownerID, err := w.Store.GetHeartbeat(ctx, sessionID); err == nil && ownerID != w.NodeID {
		log.Warn("recoverFromStore: 会话 %s 由节点 %s 持有, 拒绝收养", sessionID, ownerID)
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	blob, err := w.Store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			log.Warn("recoverFromStore: 读快照失败: session=%s, %v", sessionID, err)
		}
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	peek, err := peekSnapshot(blob)
	if err != nil {
		log.Warn("recoverFromStore: %v", err)
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}
	if peek.GameOver {
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionOver.Error()}
	}

	engine, users, err := w.restoreEngine(w, sessionID, blob)
	if err != nil {
		log.Error("recoverFromStore: 重建引擎失败: session=%s, %v", sessionID, err)
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	userInfo, found := users[req.UserID]
	if !found || userInfo.IsBot {
		engine.Close()
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}
	userInfo.Token = req.Token

	if _, err := w.SessionManager.AdoptSession(sessionID, users, engine); err != nil {
		engine.Close()
		log.Warn("recoverFromStore: 收养会话失败: %v", err)
		return &transfer.ReconnectResponse{Error: transfer.ErrSessionNotFound.Error()}
	}

	if err := w.Store.Heartbeat(ctx, sessionID, w.NodeID, w.heartbeatTTL); err != nil {
		log.Warn("recoverFromStore: 写心跳失败: session=%s, %v", sessionID, err)
	}
	w.refreshPlayerMapping(req.UserID, sessionID)

	// 重连事件让引擎把全量快照推给该玩家并通知对手
	event := &share.ReconnectEvent{ConnectorNodeID: req.ConnectorNodeID}
	event.UserID = req.UserID
	engine.NotifyEvent(event)

	log.Info("recoverFromStore: 玩家 %s 通过快照恢复会话 %s", req.UserID, sessionID)
	return &transfer.ReconnectResponse{
		SessionID:  sessionID,
		PlayerRole: playerRole(userInfo.SeatIndex),
	}
}

// refreshPlayerMapping 异步续玩家路由的 TTL
func (w *Worker) refreshPlayerMapping(userID, sessionID string) {
	if w.Store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Store.MapPlayerToSession(ctx, userID, sessionID, w.snapshotTTL); err != nil {
			log.Warn("refreshPlayerMapping: user=%s, %v", userID, err)
		}
	}()
}

func playerRole(seatIndex int) string {
	if seatIndex == 0 {
		return "player1"
	}
	return "player2"
}
