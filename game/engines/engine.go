package engines

import (
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

type EngineType int32

const (
	BISCA_2P_ENGINE EngineType = iota // 两人 bisca 游戏引擎
)

type GameState int

const (
	GameWaiting    GameState = iota // 等待开始
	GameInProgress                  // 进行中
	GameFinished                    // 结束
)

// Engine 每个游戏会话都有一个游戏引擎
type Engine interface {
	// InitializeEngine 初始化游戏引擎
	// users: Session.Users map，Engine 和 Session 共用
	InitializeEngine(sessionID string, users map[string]*share.UserInfo) error

	// NotifyEvent 通知游戏事件（入队，由引擎内部串行处理）
	NotifyEvent(event share.GameEvent)

	// RequestSync 请求引擎把当前状态镜像到外部存储（入队，异步）
	RequestSync()

	// Terminate 触发销毁会话（异步请求）
	Terminate()

	// Close 释放引擎内部资源
	Close()
}
