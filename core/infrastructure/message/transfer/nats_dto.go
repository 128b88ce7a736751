package transfer

import (
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/protocol"
)

type SessionData struct {
	SingleData map[string]any // 只保存当前 connID
	AllData    map[string]any // 所有 connID 都需要保存
}

// ServicePacket 用于服务节点之间通信，有两层路由
// Route 是服务间路由，Body.Route 是客户端路由
type ServicePacket struct {
	Body        *protocol.Message
	Source      string
	Destination string
	Route       string
	SessionData *SessionData
	PushUser    []string
}

// NewPushPacket 构造一个服务间推送包
// route 同时作为服务间路由和客户端路由
func NewPushPacket(source, destination, route string, userIDs []string, data []byte) *ServicePacket {
	return &ServicePacket{
		Source:      source,
		Destination: destination,
		Route:       route,
		PushUser:    userIDs,
		Body: &protocol.Message{
			Type:  protocol.Push,
			Route: route,
			Data:  data,
		},
	}
}

// PlayerJoinDTO 创建会话时每个真人玩家的入场信息
type PlayerJoinDTO struct {
	UserID          string `json:"userID"`
	Name            string `json:"name"`
	Token           string `json:"token"`
	ConnectorNodeID string `json:"connectorNodeID"`
}

// CreateSessionRequest 创建会话请求
// VsBot 为真时 Players 只有一个真人，第二个座位由机器人占据
type CreateSessionRequest struct {
	Players       []PlayerJoinDTO `json:"players"`
	HandSize      int             `json:"handSize"`   // 3 或 9
	WinsNeeded    int             `json:"winsNeeded"` // 1 为单回合
	VsBot         bool            `json:"vsBot"`
	BotDifficulty int             `json:"botDifficulty"`
	Practice      bool            `json:"practice"` // 练习局不发生账务
	Stake         int64           `json:"stake"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionID"`
	Error     string `json:"error,omitempty"`
}

// PlayCardRequest 出牌请求，HandIndex 是手牌下标
type PlayCardRequest struct {
	Token     string `json:"token"`
	UserID    string `json:"userID"`
	HandIndex int    `json:"handIndex"`
}

type PlayCardResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// ReconnectRequest 断线重连请求，玩家只知道自己的身份
type ReconnectRequest struct {
	Token           string `json:"token"`
	UserID          string `json:"userID"`
	ConnectorNodeID string `json:"connectorNodeID"`
}

type ReconnectResponse struct {
	SessionID  string `json:"sessionID"`
	PlayerRole string `json:"playerRole"` // "player1" | "player2"
	Error      string `json:"error,omitempty"`
}
