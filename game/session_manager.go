package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// SessionStatus 会话状态
type SessionStatus int

const (
	SessionStatusPlaying  SessionStatus = iota // 对局中
	SessionStatusFinished                      // 已结束
)

// Session 游戏会话
// Users 与 Engine.UserMap 是同一份引用
type Session struct {
	ID        string
	Users     map[string]*share.UserInfo // userID -> UserInfo
	Engine    engines.Engine
	Status    SessionStatus
	CreatedAt time.Time
	mu        sync.RWMutex
}

// GetPlayer 获取玩家信息
func (s *Session) GetPlayer(userID string) (*share.UserInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userInfo, exists := s.Users[userID]
	return userInfo, exists
}

// SessionManager 会话管理器
// 管理本节点所有活跃会话和玩家到会话的路由，没有任何包级全局状态
type SessionManager struct {
	sessions      map[string]*Session // sessionID -> Session
	playerSession map[string]string   // userID -> sessionID
	mu            sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:      make(map[string]*Session),
		playerSession: make(map[string]string),
	}
}

// RegisterSession 注册会话并初始化引擎
// users 的座位必须已分配好（0 和 1 各一个）；
// 同一个玩家同时只能在一个会话中
func (sm *SessionManager) RegisterSession(sessionID string, users map[string]*share.UserInfo, engine engines.Engine) (*Session, error) {
	if len(users) != 2 {
		return nil, fmt.Errorf("会话需要恰好两个玩家, 实际 %d", len(users))
	}
	seatSeen := [2]bool{}
	for _, userInfo := range users {
		if userInfo.SeatIndex < 0 || userInfo.SeatIndex > 1 || seatSeen[userInfo.SeatIndex] {
			return nil, fmt.Errorf("座位分配异常")
		}
		seatSeen[userInfo.SeatIndex] = true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, fmt.Errorf("会话 %s 已存在", sessionID)
	}
	for userID, userInfo := range users {
		if userInfo.IsBot {
			continue
		}
		if other, exists := sm.playerSession[userID]; exists {
			return nil, fmt.Errorf("玩家 %s 已在会话 %s 中", userID, other)
		}
	}

	session := &Session{
		ID:        sessionID,
		Users:     users,
		Engine:    engine,
		Status:    SessionStatusPlaying,
		CreatedAt: time.Now(),
	}

	for userID, userInfo := range users {
		if userInfo.IsBot {
			continue
		}
		sm.playerSession[userID] = sessionID
	}

	if err := engine.InitializeEngine(sessionID, users); err != nil {
		sm.cleanupSession(sessionID, session)
		return nil, fmt.Errorf("初始化游戏引擎失败: %v", err)
	}
	sm.sessions[sessionID] = session

	log.Info("SessionManager 注册会话 %s, 玩家数: %d", sessionID, len(users))
	return session, nil
}

// AdoptSession 收养一个已恢复的会话（引擎已经由快照重建并启动）
// 与 RegisterSession 的区别是不再调用 InitializeEngine
func (sm *SessionManager) AdoptSession(sessionID string, users map[string]*share.UserInfo, engine engines.Engine) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, fmt.Errorf("会话 %s 已存在", sessionID)
	}
	for userID, userInfo := range users {
		if userInfo.IsBot {
			continue
		}
		if other, exists := sm.playerSession[userID]; exists {
			return nil, fmt.Errorf("玩家 %s 已在会话 %s 中", userID, other)
		}
	}

	session := &Session{
		ID:        sessionID,
		Users:     users,
		Engine:    engine,
		Status:    SessionStatusPlaying,
		CreatedAt: time.Now(),
	}
	for userID, userInfo := range users {
		if userInfo.IsBot {
			continue
		}
		sm.playerSession[userID] = sessionID
	}
	sm.sessions[sessionID] = session

	log.Info("SessionManager 收养恢复的会话 %s", sessionID)
	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[sessionID]
	return session, exists
}

// GetPlayerSession 获取玩家所在会话
func (sm *SessionManager) GetPlayerSession(userID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessionID, exists := sm.playerSession[userID]
	if !exists {
		return nil, false
	}
	session, exists := sm.sessions[sessionID]
	return session, exists
}

// DeleteSession 删除会话并清理玩家路由
func (sm *SessionManager) DeleteSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return fmt.Errorf("会话 %s 不存在", sessionID)
	}

	session.mu.RLock()
	for userID := range session.Users {
		delete(sm.playerSession, userID)
	}
	session.mu.RUnlock()

	session.Status = SessionStatusFinished
	session.Engine.Close()
	delete(sm.sessions, sessionID)

	log.Info("SessionManager 删除会话 %s", sessionID)
	return nil
}

// UpdatePlayerConnector 更新玩家的 connector topic（重连用）
func (sm *SessionManager) UpdatePlayerConnector(userID, newConnectorTopic string) error {
	session, exists := sm.GetPlayerSession(userID)
	if !exists {
		return fmt.Errorf("玩家 %s 不在任何会话中", userID)
	}

	userInfo, exists := session.GetPlayer(userID)
	if !exists {
		return fmt.Errorf("玩家 %s 不在会话 %s 中", userID, session.ID)
	}
	userInfo.SetOnline(newConnectorTopic)
	return nil
}

// GetPlayerConnector 获取玩家的 connector topic
func (sm *SessionManager) GetPlayerConnector(userID string) (string, bool) {
	session, exists := sm.GetPlayerSession(userID)
	if !exists {
		return "", false
	}
	userInfo, exists := session.GetPlayer(userID)
	if !exists || userInfo.ConnectorNodeID == "" {
		return "", false
	}
	return userInfo.ConnectorNodeID, true
}

// GetStats 统计信息（会话数、真人玩家数），供 Monitor 使用
func (sm *SessionManager) GetStats() (sessionCount int, playerCount int) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions), len(sm.playerSession)
}

// GetAllSessions 所有会话列表（返回副本）
func (sm *SessionManager) GetAllSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// cleanupSession 持锁状态下的会话清理
func (sm *SessionManager) cleanupSession(sessionID string, session *Session) {
	session.mu.RLock()
	for userID := range session.Users {
		delete(sm.playerSession, userID)
	}
	session.mu.RUnlock()
	delete(sm.sessions, sessionID)
}
