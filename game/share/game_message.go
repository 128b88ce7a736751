package share

// GameEvent 游戏事件接口
type GameEvent interface {
	GetUserID() string
	GetEventType() string
}

type GameMessageEvent struct {
	UserID string `json:"userID"` // 用户 ID（用于查找座位）
}

func (e *GameMessageEvent) GetUserID() string {
	return e.UserID
}

// PlayCardEvent 玩家出牌，HandIndex 是手牌下标
type PlayCardEvent struct {
	GameMessageEvent
	HandIndex int `json:"handIndex"`
}

func (e *PlayCardEvent) GetEventType() string {
	return "PlayCard"
}

type ReconnectEvent struct {
	GameMessageEvent
	ConnectorNodeID string `json:"connectorNodeID"`
}

func (e *ReconnectEvent) GetEventType() string {
	return "Reconnect"
}

// DisconnectEvent 玩家掉线，会话继续推进等超时
type DisconnectEvent struct {
	GameMessageEvent
}

func (e *DisconnectEvent) GetEventType() string {
	return "Disconnect"
}

// SyncEvent 周期性全量快照同步请求
type SyncEvent struct {
	GameMessageEvent
}

func (e *SyncEvent) GetEventType() string {
	return "Sync"
}
