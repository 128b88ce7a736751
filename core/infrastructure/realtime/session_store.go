package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/database"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
)

const (
	sessionSnapshotKey = "bisca:session"        // sessionID -> 快照 JSON
	sessionMetaKey     = "bisca:session:meta"   // sessionID -> 元数据 JSON
	sessionActiveKey   = "bisca:session:active" // Set: 活跃会话
	heartbeatKey       = "bisca:heartbeat"      // sessionID -> ownerID，短 TTL
	playerSessionKey   = "bisca:player:session" // playerID -> sessionID
)

// RedisSessionStoreRepository Redis 实现的会话状态存储
type RedisSessionStoreRepository struct {
	redis *database.RedisManager
}

func NewRedisSessionStoreRepository(redis *database.RedisManager) repository.SessionStoreRepository {
	return &RedisSessionStoreRepository{
		redis: redis,
	}
}

func (r *RedisSessionStoreRepository) SaveSnapshot(ctx context.Context, sessionID string, stateBlob []byte, ttl time.Duration) error {
	if err := r.redis.Set(ctx, sessionSnapshotKey+":"+sessionID, string(stateBlob), ttl); err != nil {
		return fmt.Errorf("保存会话快照失败: %w", err)
	}
	// 活跃集合没有 TTL，成员由 DeleteSession 或看门狗移除
	if err := r.redis.SAdd(ctx, sessionActiveKey, sessionID); err != nil {
		return fmt.Errorf("记入活跃集合失败: %w", err)
	}
	return nil
}

func (r *RedisSessionStoreRepository) LoadSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	val, err := r.redis.Get(ctx, sessionSnapshotKey+":"+sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, err
	}
	return []byte(val), nil
}

// DeleteSession 四个 key 逐个删除，互不阻塞，失败的 key 由 TTL 兜底
func (r *RedisSessionStoreRepository) DeleteSession(ctx context.Context, sessionID string) error {
	var firstErr error
	if err := r.redis.Del(ctx, sessionSnapshotKey+":"+sessionID); err != nil {
		log.Warn("删除会话快照失败: session=%s, err=%v", sessionID, err)
		firstErr = err
	}
	if err := r.redis.SRem(ctx, sessionActiveKey, sessionID); err != nil {
		log.Warn("移出活跃集合失败: session=%s, err=%v", sessionID, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := r.redis.Del(ctx, heartbeatKey+":"+sessionID); err != nil {
		log.Warn("删除心跳失败: session=%s, err=%v", sessionID, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := r.redis.Del(ctx, sessionMetaKey+":"+sessionID); err != nil {
		log.Warn("删除会话元数据失败: session=%s, err=%v", sessionID, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *RedisSessionStoreRepository) MapPlayerToSession(ctx context.Context, playerID, sessionID string, ttl time.Duration) error {
	return r.redis.Set(ctx, playerSessionKey+":"+playerID, sessionID, ttl)
}

func (r *RedisSessionStoreRepository) GetSessionForPlayer(ctx context.Context, playerID string) (string, error) {
	val, err := r.redis.Get(ctx, playerSessionKey+":"+playerID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrPlayerNotMapped
		}
		return "", err
	}
	return val, nil
}

func (r *RedisSessionStoreRepository) UnmapPlayer(ctx context.Context, playerID string) error {
	return r.redis.Del(ctx, playerSessionKey+":"+playerID)
}

func (r *RedisSessionStoreRepository) Heartbeat(ctx context.Context, sessionID, ownerID string, ttl time.Duration) error {
	return r.redis.Set(ctx, heartbeatKey+":"+sessionID, ownerID, ttl)
}

func (r *RedisSessionStoreRepository) GetHeartbeat(ctx context.Context, sessionID string) (string, error) {
	val, err := r.redis.Get(ctx, heartbeatKey+":"+sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrHeartbeatMissing
		}
		return "", err
	}
	return val, nil
}

func (r *RedisSessionStoreRepository) SaveMetadata(ctx context.Context, sessionID string, meta *repository.SessionMetadata, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("序列化会话元数据失败: %w", err)
	}
	return r.redis.Set(ctx, sessionMetaKey+":"+sessionID, string(data), ttl)
}

func (r *RedisSessionStoreRepository) LoadMetadata(ctx context.Context, sessionID string) (*repository.SessionMetadata, error) {
	val, err := r.redis.Get(ctx, sessionMetaKey+":"+sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrMetadataNotFound
		}
		return nil, err
	}
	var meta repository.SessionMetadata
	if err := json.Unmarshal([]byte(val), &meta); err != nil {
		return nil, fmt.Errorf("解析会话元数据失败: %w", err)
	}
	return &meta, nil
}

func (r *RedisSessionStoreRepository) ListActiveSessions(ctx context.Context) ([]string, error) {
	return r.redis.SMembers(ctx, sessionActiveKey)
}
