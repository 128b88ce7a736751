package repository

import (
	"context"
	"time"
)

// SessionMetadata 会话的慢变事实，创建时写一次，看门狗与恢复路径读取
type SessionMetadata struct {
	SessionID  string    `json:"sessionID"`
	RecordID   string    `json:"recordID,omitempty"` // 外部对局记录 ID（十六进制）
	Stake      int64     `json:"stake"`
	Practice   bool      `json:"practice"`
	MultiRound bool      `json:"multiRound"` // winsNeeded > 1
	PlayerIDs  []string  `json:"playerIDs"`
	BotSeats   []int     `json:"botSeats,omitempty"`
	StartTime  time.Time `json:"startTime"`
}

// SessionStoreRepository 分布式会话状态存储
// 通用 KV + 集合 + TTL 基底上的会话快照、玩家路由与心跳；
// 所有快照写入都是幂等的全量覆盖，崩溃后以最后一次成功写入为准
type SessionStoreRepository interface {
	// SaveSnapshot 全量覆盖会话快照，并把 sessionID 记入活跃集合
	SaveSnapshot(ctx context.Context, sessionID string, stateBlob []byte, ttl time.Duration) error

	// LoadSnapshot 读取会话快照，不存在返回 ErrSnapshotNotFound
	LoadSnapshot(ctx context.Context, sessionID string) ([]byte, error)

	// DeleteSession 删除快照、活跃集合成员、心跳和元数据
	// 各删除相互独立、尽力而为，残留 key 由 TTL 兜底
	DeleteSession(ctx context.Context, sessionID string) error

	// MapPlayerToSession 玩家 -> 会话 路由，供断线重连定位
	MapPlayerToSession(ctx context.Context, playerID, sessionID string, ttl time.Duration) error
	GetSessionForPlayer(ctx context.Context, playerID string) (string, error)
	UnmapPlayer(ctx context.Context, playerID string) error

	// Heartbeat 刷新短 TTL 的存活 key，看门狗以它判断持有进程是否在线
	Heartbeat(ctx context.Context, sessionID, ownerID string, ttl time.Duration) error
	GetHeartbeat(ctx context.Context, sessionID string) (string, error)

	// SaveMetadata 创建时写一次
	SaveMetadata(ctx context.Context, sessionID string, meta *SessionMetadata, ttl time.Duration) error
	LoadMetadata(ctx context.Context, sessionID string) (*SessionMetadata, error)

	// ListActiveSessions 枚举活跃集合
	ListActiveSessions(ctx context.Context) ([]string, error)
}
